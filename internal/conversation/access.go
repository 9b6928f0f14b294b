package conversation

import "slices"

// Access is the allow-list gate plus optional capability lists.
// An empty list means "everyone": an empty admin list opens the bot to all chats,
// an empty capability list grants the capability to every authorized chat.
type Access struct {
	admins        map[int64]bool
	dishManagers  map[int64]bool
	orderManagers map[int64]bool
}

// NewAccess builds the gate from configured chat ids
func NewAccess(admins, dishManagers, orderManagers []int64) Access {
	return Access{
		admins:        toSet(admins),
		dishManagers:  toSet(dishManagers),
		orderManagers: toSet(orderManagers),
	}
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// IsAuthorized reports whether chatID may use the bot at all
func (a Access) IsAuthorized(chatID int64) bool {
	return len(a.admins) == 0 || a.admins[chatID]
}

// CanManageDishes reports whether chatID may create, edit or delete dishes
func (a Access) CanManageDishes(chatID int64) bool {
	return a.IsAuthorized(chatID) && (len(a.dishManagers) == 0 || a.dishManagers[chatID])
}

// CanViewOrders reports whether chatID may view orders and change their status
func (a Access) CanViewOrders(chatID int64) bool {
	return a.IsAuthorized(chatID) && (len(a.orderManagers) == 0 || a.orderManagers[chatID])
}

// Admins returns the configured admin ids in ascending order, nil when access is open
func (a Access) Admins() []int64 {
	if len(a.admins) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(a.admins))
	for id := range a.admins {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
