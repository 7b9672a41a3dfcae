package arc

import "fmt"

// AssertionError is the panic value of a violated evaluator contract.
type AssertionError struct {
	Msg string
}

func (e AssertionError) Error() string { return "arc: " + e.Msg }

// fatalf reports a violated evaluator contract.
func fatalf(format string, args ...interface{}) {
	panic(AssertionError{Msg: fmt.Sprintf(format, args...)})
}
