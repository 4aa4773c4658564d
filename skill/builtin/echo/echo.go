// Package echo is the runtime's one built-in skill: a minimal module that
// echoes its input back, registered with package skill the same way a real
// skill's package would register itself from an init() func. It exists so
// cmd/skillrtd has a command to route, dispatch, and checkpoint against
// without depending on an external skill being installed.
package echo

import (
	"context"
	"fmt"

	"goa.design/skillrt/command"
	"goa.design/skillrt/skill"
)

const echoDoc = `Echoes its input back, optionally upper-cased.

Args:
    text (string, required): the text to echo back.
    shout (boolean): upper-case the text before returning it.
`

func init() {
	skill.Register("echo", New)
}

// Module is the echo skill's live instance. It holds no state beyond what
// it was constructed with, since echoing needs none.
type Module struct {
	root string
}

// New is the skill.Factory registered for "echo".
func New(root string, _ *skill.Manifest) (skill.Module, error) {
	return &Module{root: root}, nil
}

// Commands implements skill.Module.
func (m *Module) Commands(_ skill.Extensions) []skill.CommandDef {
	return []skill.CommandDef{
		{Name: "echo.say", Handler: m.say},
	}
}

// Close implements skill.Module.
func (m *Module) Close(context.Context) error { return nil }

func (m *Module) say(_ context.Context, args map[string]any) (any, error) {
	text, _ := args["text"].(string)
	if text == "" {
		return nil, fmt.Errorf("echo.say: \"text\" is required")
	}
	if shout, _ := args["shout"].(bool); shout {
		text = toUpper(text)
	}
	return map[string]any{"text": text}, nil
}

func toUpper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return string(b)
}

// Spec builds the command.Spec for "echo.say" from its docstring, the way a
// skill loader enriches a bare CommandDef once the skill's module is live.
func Spec() command.Spec {
	params := command.ParseArgsDoc(echoDoc)
	return command.Spec{
		Name:        "echo.say",
		Skill:       "echo",
		Description: "Echoes its input back, optionally upper-cased.",
		Params:      params,
		InputSchema: command.BuildInputSchema(params),
	}
}
