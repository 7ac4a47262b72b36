package cel_test

import (
	"fmt"

	"github.com/ezachrisen/gavel"
	"github.com/ezachrisen/gavel/cel"
)

func Example() {
	// Step 1: Compile the rule
	n, err := gavel.Compile("age > 30 and department == 'Sales'")
	if err != nil {
		fmt.Println(err)
		return
	}

	// Step 2: Create a CEL evaluator
	e := cel.NewEvaluator()

	data := map[string]any{
		"age":        35,
		"department": "Sales",
	}

	// Step 3: Evaluate and check the result
	pass, err := e.Evaluate(n, data)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(pass)
	// Output: true
}

func ExampleSource() {
	n := gavel.MustCompile("age < 25 or department == 'Marketing'")
	src, err := cel.Source(n)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(src)
	// Output: (age < 2.5e+01 ? true : gavel_eq(department, "Marketing"))
}
