package group_member_approval

import "github.com/pkg/errors"

var (
	ErrInstantiation = errors.New("[GroupMemberApproval] contract instantiation failed")
	ErrInvalidFunds  = errors.New("[GroupMemberApproval] invalid funds")
	ErrExecute       = errors.New("[GroupMemberApproval] execute failed")
)

func executeError(route, format string, args ...interface{}) error {
	return errors.Wrapf(ErrExecute, "route [%s]: "+format, append([]interface{}{route}, args...)...)
}
