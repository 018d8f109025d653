package providers

import (
	"rewind/internal/structures"

	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (v *CnfValidator) Validate() error {
	vd := validate.Struct(v.conf)
	vd.StopOnError = false
	if !vd.Validate() {
		return vd.Errors.OneError()
	}
	return nil
}
