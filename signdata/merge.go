package signdata

import (
	"encoding/json"
	"fmt"
	"strings"
)

// RawField is a field as stored: a JSON object whose unknown keys must
// survive a merge.
type RawField map[string]json.RawMessage

func (f RawField) key() string {
	var email string
	if raw, ok := f["signerEmail"]; ok {
		_ = json.Unmarshal(raw, &email)
	}
	return strings.ToLower(strings.TrimSpace(email)) + "\x00" + rawID(f["id"])
}

// MergeFields folds incoming into existing keyed by (signer email, field id).
// A match is overlaid in place, key by key; anything else is appended. The
// result never holds two fields with the same key unless existing already
// did.
func MergeFields(existing, incoming []RawField) []RawField {
	out := make([]RawField, 0, len(existing)+len(incoming))
	index := make(map[string]int, len(existing))
	for _, f := range existing {
		cp := make(RawField, len(f))
		for k, v := range f {
			cp[k] = v
		}
		if _, seen := index[f.key()]; !seen {
			index[f.key()] = len(out)
		}
		out = append(out, cp)
	}
	for _, f := range incoming {
		k := f.key()
		if i, ok := index[k]; ok {
			for name, v := range f {
				out[i][name] = v
			}
			continue
		}
		cp := make(RawField, len(f))
		for name, v := range f {
			cp[name] = v
		}
		index[k] = len(out)
		out = append(out, cp)
	}
	return out
}

type rawStep struct {
	Step json.RawMessage `json:"step,omitempty"`
	Data map[string]json.RawMessage
}

func decodeRawStep(raw json.RawMessage) (rawStep, error) {
	var s struct {
		Step json.RawMessage            `json:"step,omitempty"`
		Data map[string]json.RawMessage `json:"data"`
	}
	if len(raw) == 0 {
		return rawStep{Data: map[string]json.RawMessage{}}, nil
	}
	if err := json.Unmarshal(raw, &s); err != nil {
		return rawStep{}, err
	}
	if s.Data == nil {
		s.Data = map[string]json.RawMessage{}
	}
	return rawStep{Step: s.Step, Data: s.Data}, nil
}

func rawFields(data map[string]json.RawMessage) ([]RawField, error) {
	raw, ok := data["fields"]
	if !ok || string(raw) == "null" {
		return nil, nil
	}
	var fields []RawField
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

// Apply produces the stored sign data after an update. An incomplete update
// replaces everything. A complete update merges the step 2 field list with
// MergeFields, takes the step 2 step number from the update when given, and
// replaces every other key present in the update.
func Apply(existing, update SignData, complete bool) (SignData, error) {
	if !complete {
		out := make(SignData, len(update))
		for k, v := range update {
			out[k] = v
		}
		return out, nil
	}

	out := make(SignData, len(existing)+len(update))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range update {
		if k != StepFields {
			out[k] = v
		}
	}

	rawUpdate, ok := update[StepFields]
	if !ok {
		return out, nil
	}
	next, err := decodeRawStep(rawUpdate)
	if err != nil {
		return nil, fmt.Errorf("decode step %s update: %w", StepFields, err)
	}
	incoming, err := rawFields(next.Data)
	if err != nil {
		return nil, fmt.Errorf("decode step %s update fields: %w", StepFields, err)
	}
	if incoming == nil {
		// Without a field list the update is ignored for this step.
		return out, nil
	}

	cur, err := decodeRawStep(existing[StepFields])
	if err != nil {
		return nil, fmt.Errorf("decode step %s: %w", StepFields, err)
	}
	if len(cur.Step) == 0 {
		cur.Step = next.Step
	}
	old, err := rawFields(cur.Data)
	if err != nil {
		old = nil
	}
	merged, err := json.Marshal(MergeFields(old, incoming))
	if err != nil {
		return nil, fmt.Errorf("encode merged fields: %w", err)
	}
	cur.Data["fields"] = merged
	if len(next.Step) > 0 {
		cur.Step = next.Step
	}

	encoded, err := json.Marshal(struct {
		Step json.RawMessage            `json:"step,omitempty"`
		Data map[string]json.RawMessage `json:"data"`
	}{cur.Step, cur.Data})
	if err != nil {
		return nil, fmt.Errorf("encode step %s: %w", StepFields, err)
	}
	out[StepFields] = encoded
	return out, nil
}
