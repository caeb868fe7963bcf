package ui

import (
	"fmt"
	"os"
)

func OK(msg string) {
	fmt.Println(Current().Success.Render("✔ " + msg))
}

func Fail(msg string) {
	fmt.Fprintln(os.Stderr, Current().Error.Render("✖ "+msg))
}

func Hint(msg string) {
	fmt.Fprintln(os.Stderr, Current().Muted.Render(msg))
}
