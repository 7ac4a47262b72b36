package gavel_test

import (
	"errors"
	"fmt"

	"github.com/ezachrisen/gavel"
)

// Example showing basic use of gavel: compile a rule once, then evaluate it
// against records.
func Example() {

	// Step 1: Compile the rule
	n, err := gavel.Compile("age > 30 and department == 'Sales'")
	if err != nil {
		fmt.Println(err)
		return
	}

	// The data we wish to evaluate the rule on
	data := map[string]any{
		"age":        35,
		"department": "Sales",
	}

	// Step 2: Evaluate and check the result
	pass, err := gavel.Evaluate(n, data)
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(pass)
	// Output: true
}

func ExampleCompile() {
	n, err := gavel.Compile("a == 1 or b == 2 and c == 3")
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(n)

	_, err = gavel.Compile("age >> 30")
	fmt.Println(err)
	fmt.Println(errors.Is(err, gavel.ErrSyntax))

	_, err = gavel.Compile("age > salary")
	fmt.Println(errors.Is(err, gavel.ErrUnsupported))
	// Output:
	// (a == 1 or (b == 2 and c == 3))
	// syntax error at 1:6: expected a literal after '>', got '>'
	// true
	// true
}

func ExampleEvaluate() {
	n := gavel.MustCompile("age < 25 or department == 'Marketing'")

	pass, err := gavel.Evaluate(n, map[string]any{"age": 40, "department": "Marketing"})
	fmt.Println(pass, err)

	// age is missing
	_, err = gavel.Evaluate(n, map[string]any{"department": "Sales"})
	fmt.Println(err)

	// department is a number
	_, err = gavel.Evaluate(n, map[string]any{"age": 40, "department": 7})
	fmt.Println(errors.Is(err, gavel.ErrTypeMismatch))
	// Output:
	// true <nil>
	// missing field "age"
	// true
}

func ExampleTree() {
	n := gavel.MustCompile("age > 30 and (department == 'Sales' or tenure >= 5)")
	fmt.Print(gavel.Tree(n))
	// Output:
	// and
	// ├── age > 30
	// └── or
	//     ├── department == 'Sales'
	//     └── tenure >= 5
}

func ExampleFields() {
	n := gavel.MustCompile("(age > 30 and department == 'Sales') or (age < 25 and department == 'Marketing')")
	fmt.Println(gavel.Fields(n))
	fmt.Println(gavel.Count(n))
	fmt.Println(gavel.Depth(n))
	// Output:
	// [age department]
	// 3 4
	// 3
}

func ExampleTrace() {
	n := gavel.MustCompile("age > 30 and department == 'Sales'")
	pass, d, err := gavel.Trace(n, map[string]any{"age": 20, "department": "Sales"})
	if err != nil {
		fmt.Println(err)
		return
	}
	fmt.Println(pass)
	fmt.Println(d.Kind, d.Outcome)
	for _, c := range d.Children {
		fmt.Println(c.Expr, c.Input, c.Outcome)
	}
	// Output:
	// false
	// and FAIL
	// age > 30 20 FAIL
	// department == 'Sales'  skipped
}

func ExampleVault() {
	v := gavel.NewVault()

	_, err := v.Evaluate(map[string]any{"age": 35})
	fmt.Println(err)

	if _, err := v.Compile("age > 30"); err != nil {
		fmt.Println(err)
		return
	}

	// A rule that does not compile leaves the active rule in place
	_, err = v.Compile("age >")
	fmt.Println(err != nil)

	r, _ := v.Get()
	fmt.Println(r.Canonical())

	pass, err := v.Evaluate(map[string]any{"age": 35})
	fmt.Println(pass, err)
	// Output:
	// no active rule
	// true
	// age > 30
	// true <nil>
}
