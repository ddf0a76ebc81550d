// Package contact reveals and reads candidate contact details that the
// recruitment site hides behind click-to-reveal controls.
package contact

type Kind string

const (
	Phone Kind = "phone"
	Email Kind = "email"
)

// Kinds lists the contact kinds in the order they are revealed.
var Kinds = []Kind{Phone, Email}

// Options tells the reveal controller where a kind lives in the page:
// TriggerHints are text fragments of the reveal control, ValueHints are CSS
// selectors of the element that ends up holding the value.
type Options struct {
	Kind         Kind
	TriggerHints []string
	ValueHints   []string
}

// Resolver maps a kind to its page hints.
type Resolver func(Kind) Options

var defaultHints = map[Kind]Options{
	Phone: {
		Kind: Phone,
		TriggerHints: []string{
			"ver telefone",
			"visualizar telefone",
			"mostrar telefone",
			"exibir telefone",
			"ver celular",
			"show phone",
		},
		ValueHints: []string{
			"a[href^='tel:']",
			"[data-phone]",
			"[class*='telefone']",
			"[class*='celular']",
			"[class*='phone']",
		},
	},
	Email: {
		Kind: Email,
		TriggerHints: []string{
			"ver e-mail",
			"ver email",
			"visualizar e-mail",
			"mostrar e-mail",
			"exibir e-mail",
			"show email",
		},
		ValueHints: []string{
			"a[href^='mailto:']",
			"[data-email]",
			"[class*='e-mail']",
			"[class*='email']",
		},
	},
}

// ResolveOptions returns the built-in hints for kind. Unknown kinds get empty
// hints, which makes the reveal fail with TriggerNotFound.
func ResolveOptions(kind Kind) Options {
	o, ok := defaultHints[kind]
	if !ok {
		return Options{Kind: kind}
	}
	return o.clone()
}

func (o Options) clone() Options {
	return Options{
		Kind:         o.Kind,
		TriggerHints: append([]string(nil), o.TriggerHints...),
		ValueHints:   append([]string(nil), o.ValueHints...),
	}
}

func (o Options) scriptArgs() map[string]interface{} {
	return map[string]interface{}{
		"kind":         string(o.Kind),
		"triggerHints": o.TriggerHints,
		"valueHints":   o.ValueHints,
	}
}
