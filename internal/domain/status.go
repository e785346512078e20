package domain

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPlaced  Status = "PLACED"
	StatusUpdated Status = "UPDATED"
	StatusDeleted Status = "DELETED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending: {StatusPlaced: true},
	StatusPlaced:  {StatusUpdated: true, StatusDeleted: true},
	StatusUpdated: {StatusPlaced: true},
	StatusDeleted: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
