package services

import (
	"gsd/internal/store"
)

const userdataPrefix = "userdata:"

// maxUserdataItems caps the length of userdata lists.
const maxUserdataItems = 1000

// UserdataServiceInterface is a small free-form per-user key space that
// companion apps use to exchange state. Values are opaque to the server.
type UserdataServiceInterface interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
	LPush(key, value string) error
	LRange(key string, start, stop int) ([]string, error)
}

type UserdataService struct {
	store store.Store
}

func NewUserdataService(st store.Store) UserdataServiceInterface {
	return &UserdataService{store: st}
}

func (us *UserdataService) Get(key string) (string, bool, error) {
	return us.store.Get(userdataPrefix + key)
}

func (us *UserdataService) Set(key, value string) error {
	return us.store.Update(func(tx store.Tx) {
		tx.Set(userdataPrefix+key, value)
	})
}

func (us *UserdataService) Delete(key string) error {
	return us.store.Update(func(tx store.Tx) {
		tx.Del(userdataPrefix + key)
	})
}

func (us *UserdataService) LPush(key, value string) error {
	return us.store.Update(func(tx store.Tx) {
		tx.LPush(userdataPrefix+key, value)
		tx.LTrim(userdataPrefix+key, 0, maxUserdataItems)
	})
}

func (us *UserdataService) LRange(key string, start, stop int) ([]string, error) {
	return us.store.LRange(userdataPrefix+key, start, stop)
}
