package envelope

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Payload is the closed set of per-feature request bodies. Each feature type
// has exactly one payload shape so call sites never guess at field names.
type Payload interface {
	// Feature returns the feature type this payload belongs to.
	Feature() FeatureType
	// Normalize returns a canonical string form of the payload used for
	// cache-key hashing. Identical requests must normalize identically.
	Normalize() string
	// Empty reports whether the payload carries no usable content.
	Empty() bool
}

// canonical renders fields for cache-key hashing. Each field is
// length-prefixed so no choice of contents can collide with a different
// field split.
func canonical(fields ...string) string {
	var b strings.Builder
	for i, f := range fields {
		if i > 0 {
			b.WriteByte(';')
		}
		fmt.Fprintf(&b, "%d:%s", len(f), f)
	}
	return b.String()
}

// ChatPayload carries one conversational turn plus optional rolling context.
type ChatPayload struct {
	Message string   `json:"message"`
	Context []string `json:"context,omitempty"`
}

func (p ChatPayload) Feature() FeatureType { return FeatureChat }
func (p ChatPayload) Empty() bool          { return strings.TrimSpace(p.Message) == "" }

func (p ChatPayload) Normalize() string {
	return canonical(append([]string{strings.TrimSpace(p.Message)}, p.Context...)...)
}

// TaskPayload carries free-form text to be parsed into a structured task.
type TaskPayload struct {
	Text     string `json:"text"`
	Timezone string `json:"timezone,omitempty"`
}

func (p TaskPayload) Feature() FeatureType { return FeatureTaskParsing }
func (p TaskPayload) Empty() bool          { return strings.TrimSpace(p.Text) == "" }

func (p TaskPayload) Normalize() string {
	return canonical(strings.TrimSpace(p.Text), p.Timezone)
}

// VisionPayload carries a base64-encoded image plus an instruction.
type VisionPayload struct {
	ImageBase64 string `json:"image_base64"`
	MediaType   string `json:"media_type,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

func (p VisionPayload) Feature() FeatureType { return FeatureVision }
func (p VisionPayload) Empty() bool          { return p.ImageBase64 == "" }

func (p VisionPayload) Normalize() string {
	return canonical(p.ImageBase64, strings.TrimSpace(p.Prompt))
}

// BriefingPayload asks for a long-form daily briefing over the given sections.
type BriefingPayload struct {
	Date     string   `json:"date"`
	Sections []string `json:"sections,omitempty"`
	Style    string   `json:"style,omitempty"`
}

func (p BriefingPayload) Feature() FeatureType { return FeatureBriefing }
func (p BriefingPayload) Empty() bool          { return strings.TrimSpace(p.Date) == "" }

func (p BriefingPayload) Normalize() string {
	fields := append([]string{p.Date}, p.Sections...)
	return canonical(append(fields, p.Style)...)
}

// ResearchPayload carries a web-research query expecting cited answers.
type ResearchPayload struct {
	Query   string `json:"query"`
	Recency string `json:"recency,omitempty"` // day, week, month
}

func (p ResearchPayload) Feature() FeatureType { return FeatureWebResearch }
func (p ResearchPayload) Empty() bool          { return strings.TrimSpace(p.Query) == "" }

func (p ResearchPayload) Normalize() string {
	return canonical(strings.TrimSpace(p.Query), p.Recency)
}

// ImagePayload carries an image-generation prompt.
type ImagePayload struct {
	Prompt string `json:"prompt"`
	Style  string `json:"style,omitempty"`
	Size   string `json:"size,omitempty"`
}

func (p ImagePayload) Feature() FeatureType { return FeatureImageGeneration }
func (p ImagePayload) Empty() bool          { return strings.TrimSpace(p.Prompt) == "" }

func (p ImagePayload) Normalize() string {
	return canonical(strings.TrimSpace(p.Prompt), p.Style, p.Size)
}

// decodePayload unmarshals raw JSON into the payload variant for the feature.
func decodePayload(feature FeatureType, raw json.RawMessage) (Payload, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("payload is required")
	}
	var (
		p   Payload
		err error
	)
	switch feature {
	case FeatureChat:
		var v ChatPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case FeatureTaskParsing:
		var v TaskPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case FeatureVision:
		var v VisionPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case FeatureBriefing:
		var v BriefingPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case FeatureWebResearch:
		var v ResearchPayload
		err = json.Unmarshal(raw, &v)
		p = v
	case FeatureImageGeneration:
		var v ImagePayload
		err = json.Unmarshal(raw, &v)
		p = v
	default:
		return nil, fmt.Errorf("unknown feature type: %s", feature)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s payload: %w", feature, err)
	}
	return p, nil
}
