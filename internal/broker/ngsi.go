// Package broker adapts an NGSI-v2 context broker and its time-series history
// store into the airport entity model. It is the snapshot source when the twin
// mirrors a live deployment instead of running its own simulator.
package broker

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Attribute is an NGSI-v2 attribute in normalized form.
type Attribute struct {
	Type     string                     `json:"type"`
	Value    json.RawMessage            `json:"value"`
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
}

// Entity is a raw NGSI-v2 entity: id, type and named attributes.
type Entity struct {
	ID    string
	Type  string
	Attrs map[string]Attribute
}

func (e *Entity) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	e.Attrs = make(map[string]Attribute, len(raw))
	for k, v := range raw {
		switch k {
		case "id":
			if err := json.Unmarshal(v, &e.ID); err != nil {
				return fmt.Errorf("entity id: %w", err)
			}
		case "type":
			if err := json.Unmarshal(v, &e.Type); err != nil {
				return fmt.Errorf("entity type: %w", err)
			}
		default:
			var a Attribute
			if err := json.Unmarshal(v, &a); err != nil {
				return fmt.Errorf("attribute %s: %w", k, err)
			}
			e.Attrs[k] = a
		}
	}
	return nil
}

func (e Entity) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Attrs)+2)
	for k, v := range e.Attrs {
		out[k] = v
	}
	out["id"] = e.ID
	out["type"] = e.Type
	return json.Marshal(out)
}

// ShortID strips the "Type:" prefix conventionally used in entity ids.
func (e Entity) ShortID() string {
	if i := strings.LastIndex(e.ID, ":"); i >= 0 {
		return e.ID[i+1:]
	}
	return e.ID
}

func sortEntities(es []Entity) {
	sort.Slice(es, func(i, j int) bool { return es[i].ID < es[j].ID })
}

// historyResponse is the time-series store's multi-attribute payload.
type historyResponse struct {
	EntityID   string   `json:"entityId"`
	EntityType string   `json:"entityType"`
	Index      []string `json:"index"`
	Attributes []struct {
		AttrName string `json:"attrName"`
		Values   []any  `json:"values"`
	} `json:"attributes"`
}
