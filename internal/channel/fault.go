package channel

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

// FaultError is a SOAP fault returned by the service.
type FaultError struct {
	Code   string
	Reason string
	Detail *etree.Element
}

// Error implements the error interface.
func (e *FaultError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("soap fault: %s", e.Reason)
	}
	return fmt.Sprintf("soap fault %s: %s", e.Code, e.Reason)
}

// parseFault reads a SOAP 1.2 or SOAP 1.1 fault element.
func parseFault(el *etree.Element) *FaultError {
	f := &FaultError{}
	if el == nil {
		return f
	}
	// SOAP 1.2
	if code := el.FindElement("./Code/Value"); code != nil {
		f.Code = strings.TrimSpace(code.Text())
		if sub := el.FindElement("./Code/Subcode/Value"); sub != nil {
			f.Code += "/" + strings.TrimSpace(sub.Text())
		}
	}
	if reason := el.FindElement("./Reason/Text"); reason != nil {
		f.Reason = strings.TrimSpace(reason.Text())
	}
	if detail := el.FindElement("./Detail"); detail != nil {
		f.Detail = detail.Copy()
	}
	// SOAP 1.1
	if f.Code == "" {
		if code := el.FindElement("./faultcode"); code != nil {
			f.Code = strings.TrimSpace(code.Text())
		}
	}
	if f.Reason == "" {
		if reason := el.FindElement("./faultstring"); reason != nil {
			f.Reason = strings.TrimSpace(reason.Text())
		}
	}
	if f.Detail == nil {
		if detail := el.FindElement("./detail"); detail != nil {
			f.Detail = detail.Copy()
		}
	}
	return f
}
