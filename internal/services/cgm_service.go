package services

import (
	json "github.com/goccy/go-json"

	"gsd/internal/models"
	"gsd/internal/store"
)

// CgmServiceInterface owns the sticky CGM device properties. Without any
// recorded properties the device is assumed to deliver real-time data.
type CgmServiceInterface interface {
	Properties() (models.CgmProperties, error)
	SetProperties(props models.CgmProperties) error
	HasRealTimeData() (bool, error)
}

type CgmService struct {
	store store.Store
}

func NewCgmService(st store.Store) CgmServiceInterface {
	return &CgmService{store: st}
}

func (cs *CgmService) Properties() (models.CgmProperties, error) {
	hasRealTime, err := cs.HasRealTimeData()
	if err != nil {
		return models.CgmProperties{}, err
	}
	return models.CgmProperties{HasRealTime: hasRealTime}, nil
}

func (cs *CgmService) SetProperties(props models.CgmProperties) error {
	raw, err := json.Marshal(props)
	if err != nil {
		return err
	}
	return cs.store.Update(func(tx store.Tx) {
		tx.Set(keyCgmProperties, string(raw))
	})
}

func (cs *CgmService) HasRealTimeData() (bool, error) {
	v, ok, err := cs.store.Get(keyCgmProperties)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	var props models.CgmProperties
	if err := json.Unmarshal([]byte(v), &props); err != nil {
		return false, err
	}
	return props.HasRealTime, nil
}
