package services

import "gsd/internal/store"

func reverseMembers(members []store.Member) {
	for i, j := 0, len(members)-1; i < j; i, j = i+1, j-1 {
		members[i], members[j] = members[j], members[i]
	}
}
