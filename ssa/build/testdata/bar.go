package main

//arcseq:release
func release(x *int) {}

func bar(x *int) {
	release(x)
}
