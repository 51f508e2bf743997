package meter_test

import (
	"fmt"

	herrors "github.com/matzehuels/heapmeter/pkg/errors"
	"github.com/matzehuels/heapmeter/pkg/meter"
	"github.com/matzehuels/heapmeter/pkg/sizer"
)

type payload struct {
	Name string
	Data []byte
}

type record struct {
	Left  *payload
	Right *payload
}

func ExampleMeter_CountReachable() {
	// Two fields pointing at the same payload: the shared block is
	// counted once.
	shared := &payload{Name: "shared", Data: make([]byte, 16)}
	root := &record{Left: shared, Right: shared}

	m := meter.New()
	n, _ := m.CountReachable(root)
	fmt.Println("Blocks:", n)
	// Output:
	// Blocks: 4
}

func ExampleMeter_CountReachable_cycle() {
	type node struct {
		Next *node
	}
	a := &node{}
	b := &node{Next: a}
	a.Next = b

	m := meter.New()
	n, _ := m.CountReachable(a)
	fmt.Println("Blocks:", n)
	// Output:
	// Blocks: 2
}

func ExampleMeter_WithIgnoreBackReferences() {
	type child struct {
		Parent *record
	}
	root := &record{}
	c := &child{Parent: root}

	plain, _ := meter.New().CountReachable(c)
	trimmed, _ := meter.New().WithIgnoreBackReferences().CountReachable(c)
	fmt.Println("Following Parent:", plain)
	fmt.Println("Ignoring Parent:", trimmed)
	// Output:
	// Following Parent: 2
	// Ignoring Parent: 1
}

func ExampleMeter_WithMode() {
	// ModeNever requires an attached host probe; without one the
	// measurement reports the missing capability.
	m := meter.New().WithMode(sizer.ModeNever)
	_, err := m.MeasureDeep(&record{})
	fmt.Println("Code:", herrors.GetCode(err))
	// Output:
	// Code: UNAVAILABLE_CAPABILITY
}

func ExampleHumanBytes() {
	fmt.Println(meter.HumanBytes(512))
	fmt.Println(meter.HumanBytes(2048))
	fmt.Println(meter.HumanBytes(3 * 1024 * 1024))
	// Output:
	// 512 B
	// 2.00 KiB
	// 3.00 MiB
}
