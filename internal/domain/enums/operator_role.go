package enums

type OperatorRole string

const (
	OperatorRoleOwner    OperatorRole = "owner"
	OperatorRoleOperator OperatorRole = "operator"
)

func (r OperatorRole) Valid() bool {
	return r == OperatorRoleOwner || r == OperatorRoleOperator
}
