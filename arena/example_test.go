package arena_test

import (
	"fmt"

	"github.com/joshuapare/bufalloc/arena"
)

func Example() {
	a, err := arena.New(make([]byte, 1024))
	if err != nil {
		panic(err)
	}

	p, b, err := a.Alloc(100)
	if err != nil {
		panic(err)
	}
	copy(b, "hello")

	fmt.Println(a.FreeBytes() < a.TotalBytes())
	if err := a.Free(p); err != nil {
		panic(err)
	}
	fmt.Println(a.FreeBytes() == a.TotalBytes())
	// Output:
	// true
	// true
}

func ExampleArena_Realloc() {
	a, _ := arena.New(make([]byte, 1024))

	p, b, _ := a.Alloc(5)
	copy(b, "hello")

	p, b, _ = a.Realloc(p, 11)
	copy(b[5:], " world")
	fmt.Println(string(b))

	_ = a.Free(p)
	// Output: hello world
}
