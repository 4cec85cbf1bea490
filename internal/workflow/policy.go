package workflow

import (
	"fmt"

	"github.com/hse-tools/permit-service/internal/domain"
	apperrors "github.com/hse-tools/permit-service/pkg/util/errorutil"
)

// Operation names a guarded action in the service.
type Operation string

const (
	OpCreateMOC       Operation = "item.create_moc"
	OpCreatePTW       Operation = "item.create_ptw"
	OpGetItem         Operation = "item.get"
	OpListItems       Operation = "item.list"
	OpListMOCs        Operation = "item.list_mocs"
	OpListOwnMOCs     Operation = "item.list_own_mocs"
	OpListJobStarted  Operation = "item.list_job_started"
	OpGetPTWByMoc     Operation = "item.get_ptw_by_moc"
	OpEditItem        Operation = "item.edit"
	OpSubmitMOC       Operation = "item.submit_moc"
	OpSubmitPTW       Operation = "item.submit_ptw"
	OpApprove         Operation = "item.approve"
	OpReject          Operation = "item.reject"
	OpAccept          Operation = "item.accept"
	OpDeleteItem      Operation = "item.delete"
	OpCreateRequest   Operation = "request.create"
	OpListRequests    Operation = "request.list"
	OpGetRequest      Operation = "request.get"
	OpUpdateRequest   Operation = "request.update_status"
	OpListContractors Operation = "contractor.list"
	OpGetContractor   Operation = "contractor.get"
)

var (
	anyRole        = []domain.Role{domain.RoleContractor, domain.RoleHSE}
	contractorOnly = []domain.Role{domain.RoleContractor}
	hseOnly        = []domain.Role{domain.RoleHSE}
)

// policy is the single source of truth for which roles may perform which operation.
var policy = map[Operation][]domain.Role{
	OpCreateMOC:       contractorOnly,
	OpCreatePTW:       hseOnly,
	OpGetItem:         anyRole,
	OpListItems:       anyRole,
	OpListMOCs:        anyRole,
	OpListOwnMOCs:     contractorOnly,
	OpListJobStarted:  anyRole,
	OpGetPTWByMoc:     anyRole,
	OpEditItem:        hseOnly,
	OpSubmitMOC:       anyRole,
	OpSubmitPTW:       hseOnly,
	OpApprove:         hseOnly,
	OpReject:          hseOnly,
	OpAccept:          contractorOnly,
	OpDeleteItem:      hseOnly,
	OpCreateRequest:   hseOnly,
	OpListRequests:    anyRole,
	OpGetRequest:      anyRole,
	OpUpdateRequest:   anyRole,
	OpListContractors: hseOnly,
	OpGetContractor:   hseOnly,
}

// Allowed reports whether role may perform op. Unknown operations are denied.
func Allowed(op Operation, role domain.Role) bool {
	for _, r := range policy[op] {
		if r == role {
			return true
		}
	}
	return false
}

// Authorize returns a FORBIDDEN error when role may not perform op.
func Authorize(op Operation, role domain.Role) error {
	if Allowed(op, role) {
		return nil
	}
	roles := policy[op]
	if len(roles) == 1 {
		return apperrors.NewForbidden(fmt.Sprintf("access denied. required role: %s", roles[0]))
	}
	return apperrors.NewForbidden("access denied")
}
