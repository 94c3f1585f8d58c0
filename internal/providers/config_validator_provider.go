package providers

import (
	"fmt"
	"time"

	"github.com/gookit/validate"

	"gsd/internal/structures"
)

const (
	defaultLowThreshold   = 70
	defaultHighThreshold  = 170
	defaultWebhookTimeout = 2 * time.Second
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

// Validate applies defaults for optional settings, then checks the config
// against the struct tags plus a few cross-field rules the tags cannot express.
func (cv *CnfValidator) Validate() error {
	cv.applyDefaults()

	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return v.Errors.OneError()
	}

	if cv.conf.Thresholds.Low >= cv.conf.Thresholds.High {
		return fmt.Errorf("thresholds: low (%d) must be below high (%d)",
			cv.conf.Thresholds.Low, cv.conf.Thresholds.High)
	}
	switch cv.conf.Storage.Backend {
	case "redis":
		if cv.conf.Storage.Redis.Addr == "" {
			return fmt.Errorf("storage: redis backend requires storage.redis.addr")
		}
	case "file":
		if cv.conf.Storage.FilePath == "" {
			return fmt.Errorf("storage: file backend requires storage.filePath")
		}
		if cv.conf.Storage.SaveInterval < time.Second {
			return fmt.Errorf("storage: saveInterval must be at least 1s")
		}
	}
	if _, err := time.LoadLocation(cv.conf.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cv.conf.Timezone, err)
	}
	return nil
}

func (cv *CnfValidator) applyDefaults() {
	if cv.conf.Thresholds.Low == 0 {
		cv.conf.Thresholds.Low = defaultLowThreshold
	}
	if cv.conf.Thresholds.High == 0 {
		cv.conf.Thresholds.High = defaultHighThreshold
	}
	if cv.conf.Timezone == "" {
		cv.conf.Timezone = "UTC"
	}
	if cv.conf.Webhooks.Timeout == 0 {
		cv.conf.Webhooks.Timeout = defaultWebhookTimeout
	}
}
