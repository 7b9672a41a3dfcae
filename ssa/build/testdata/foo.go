package main

//arcseq:retain
func retain(x *int) {}

func foo(x *int) {
	retain(x)
}
