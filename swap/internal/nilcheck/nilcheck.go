package nilcheck

import "reflect"

// Interface reports whether value is nil, including typed-nil interfaces such
// as a (*memledger.Fungible)(nil) passed as a ledger.FungibleLedger.
func Interface(value any) bool {
	if value == nil {
		return true
	}

	v := reflect.ValueOf(value)

	switch v.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return v.IsNil()
	default:
		return false
	}
}
