package services

import (
	"encoding/json"
	"regexp"
)

// DefaultChatTitle is used when no structured title can be recovered from the
// model output.
const DefaultChatTitle = "NGMC Query Response"

// ReplyPayload is the structured result recovered from the model's raw text.
type ReplyPayload struct {
	Reply string `json:"reply"`
	Title string `json:"title"`
}

// Matches the largest brace-delimited span containing both keys; the model
// often wraps its JSON in prose or code fences.
var jsonSpanRe = regexp.MustCompile(`\{[\s\S]*"reply"[\s\S]*"title"[\s\S]*\}`)

// ExtractReply recovers a structured payload from the raw model output.
// The model is asked to return JSON but is not trusted to; extraction
// degrades in three tiers instead of failing:
//
//  1. the whole text parses as JSON with the required keys present,
//  2. the largest embedded JSON object carrying both keys parses,
//  3. the entire raw text becomes the reply with a default title.
//
// requireTitle is false on continuation flows, where the model is only asked
// for a reply.
func ExtractReply(raw string, requireTitle bool) ReplyPayload {
	var parsed ReplyPayload
	if err := json.Unmarshal([]byte(raw), &parsed); err == nil {
		if parsed.Reply != "" && (!requireTitle || parsed.Title != "") {
			if parsed.Title == "" {
				parsed.Title = DefaultChatTitle
			}
			return parsed
		}
	}

	if span := jsonSpanRe.FindString(raw); span != "" {
		var embedded ReplyPayload
		if err := json.Unmarshal([]byte(span), &embedded); err == nil && embedded.Reply != "" {
			if embedded.Title == "" {
				embedded.Title = DefaultChatTitle
			}
			return embedded
		}
	}

	return ReplyPayload{Reply: raw, Title: DefaultChatTitle}
}
