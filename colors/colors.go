package colors

import "github.com/fatih/color"

var (
	Red    = color.New(color.FgRed).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
)

// HTTPStatus colours 4xx/5xx statuses red and everything else green
func HTTPStatus(status int) string {
	if status >= 400 {
		return Red(status)
	}
	return Green(status)
}
