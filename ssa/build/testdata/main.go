package main

func main() {
	x := new(int)
	foo(x)
	bar(x)
}
