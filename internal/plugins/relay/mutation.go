package relay

import (
	"context"

	"github.com/hanpama/plugraph/internal/core"
)

// MutationInputOptions describes the input object of a relay mutation.
// The name defaults to "<Field>Input".
type MutationInputOptions struct {
	Name        string
	Description string
	Fields      core.InputFieldsFunc
}

// MutationFieldOptions describes the mutation field itself. Resolve receives
// the "input" argument.
type MutationFieldOptions struct {
	Description string
	Resolve     func(ctx context.Context, input map[string]any) (any, error)
	Extensions  map[string]any
}

// MutationPayloadOptions describes the payload object. The name defaults to
// "<Field>Payload"; payload fields see the mutation result as their source.
type MutationPayloadOptions struct {
	Name        string
	Description string
	Fields      core.FieldsFunc
}

type mutationPayload struct {
	value            any
	clientMutationID any
}

// RelayMutationField adds a mutation taking a single required "input"
// argument and returning a payload type, with clientMutationId handled as
// configured by Options.ClientMutationID.
func RelayMutationField(b *core.SchemaBuilder, name string, input MutationInputOptions, field MutationFieldOptions, payload MutationPayloadOptions) {
	p := Of(b)
	inputName := input.Name
	if inputName == "" {
		inputName = capitalize(name) + "Input"
	}
	payloadName := payload.Name
	if payloadName == "" {
		payloadName = capitalize(name) + "Payload"
	}
	mode := p.opts.ClientMutationID

	inputFields := input.Fields
	inputRef := b.InputType(inputName, core.InputObjectOptions{
		Description: input.Description,
		Fields: func(t *core.InputFieldBuilder) core.InputFields {
			out := core.InputFields{}
			if inputFields != nil {
				out = inputFields(t)
			}
			if mode != ClientMutationIDOmit {
				out["clientMutationId"] = t.ID(core.InputFieldOptions{Required: mode == ClientMutationIDRequired})
			}
			return out
		},
	})

	payloadFields := payload.Fields
	p.payloadTypes[payloadName] = true
	payloadRef := b.ObjectType(payloadName, core.ObjectOptions{
		Description: payload.Description,
		Fields: func(t *core.FieldBuilder) core.Fields {
			out := core.Fields{}
			if payloadFields != nil {
				out = payloadFields(t)
			}
			if mode != ClientMutationIDOmit {
				out["clientMutationId"] = t.ID(core.FieldOptions{
					Nullable: mode != ClientMutationIDRequired,
					Resolve: func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
						if mp, ok := source.(*mutationPayload); ok {
							return mp.clientMutationID, nil
						}
						return nil, nil
					},
				})
			}
			return out
		},
	})

	resolve := field.Resolve
	b.MutationField(name, func(t *core.FieldBuilder) core.FieldRef {
		return t.Field(core.FieldOptions{
			Type:        payloadRef,
			Description: field.Description,
			Extensions:  field.Extensions,
			Args: core.InputFields{
				"input": t.Arg.Field(core.InputFieldOptions{Type: inputRef, Required: true}),
			},
			Resolve: func(ctx context.Context, source any, args map[string]any, info *core.ResolveInfo) (any, error) {
				in, _ := args["input"].(map[string]any)
				v, err := resolve(ctx, in)
				if err != nil {
					return nil, err
				}
				return &mutationPayload{value: v, clientMutationID: in["clientMutationId"]}, nil
			},
		})
	})
}
