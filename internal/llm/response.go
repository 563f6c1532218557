package llm

import (
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/raphaelgruber/profilechat/internal/conversation"
	"github.com/tmc/langchaingo/llms"
)

// generationInfo keys used by the langchaingo backends.
const (
	safetyKey = "safety"
)

var (
	inputTokenKeys  = []string{"input_tokens", "PromptTokens", "InputTokens"}
	outputTokenKeys = []string{"output_tokens", "CompletionTokens", "OutputTokens"}
)

func convertResponse(resp *llms.ContentResponse) *conversation.Result {
	res := &conversation.Result{}
	if resp == nil {
		return res
	}

	for i, choice := range resp.Choices {
		if choice == nil {
			continue
		}
		res.Candidates = append(res.Candidates, conversation.Candidate{
			Text:          choice.Content,
			FinishStatus:  normalizeStopReason(choice.StopReason, choice.Content),
			SafetyRatings: safetyRatingsFrom(choice.GenerationInfo),
		})
		if i == 0 {
			res.Usage = usageFrom(choice.GenerationInfo)
		}
	}
	return res
}

// normalizeStopReason maps the stop reasons of the different providers onto
// finish statuses. An empty reason means the backend does not report one.
func normalizeStopReason(reason, text string) conversation.FinishStatus {
	key := strings.ToLower(reason)
	key = strings.TrimPrefix(key, "finishreason")
	key = strings.TrimPrefix(key, "finish_reason_")
	key = strings.ReplaceAll(key, "_", "")

	switch key {
	case "":
		if text != "" {
			return conversation.FinishStop
		}
		return conversation.FinishUnspecified
	case "unspecified":
		return conversation.FinishUnspecified
	case "stop", "endturn", "stopsequence", "complete":
		return conversation.FinishStop
	case "maxtokens", "length":
		return conversation.FinishMaxTokens
	case "safety", "contentfilter":
		return conversation.FinishSafety
	case "recitation":
		return conversation.FinishRecitation
	default:
		return conversation.FinishOther
	}
}

func safetyRatingsFrom(info map[string]any) []conversation.SafetyRating {
	if info == nil {
		return nil
	}
	switch v := info[safetyKey].(type) {
	case []*genai.SafetyRating:
		return convertSafetyRatings(v)
	case []conversation.SafetyRating:
		return v
	default:
		return nil
	}
}

func convertSafetyRatings(ratings []*genai.SafetyRating) []conversation.SafetyRating {
	if len(ratings) == 0 {
		return nil
	}
	out := make([]conversation.SafetyRating, 0, len(ratings))
	for _, r := range ratings {
		if r == nil {
			continue
		}
		out = append(out, conversation.SafetyRating{
			Category: fmt.Sprint(r.Category),
			Severity: fmt.Sprint(r.Probability),
		})
	}
	return out
}

func usageFrom(info map[string]any) conversation.Usage {
	return conversation.Usage{
		InputTokens:  firstCount(info, inputTokenKeys),
		OutputTokens: firstCount(info, outputTokenKeys),
	}
}

func firstCount(info map[string]any, keys []string) int64 {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return int64(v)
		case int32:
			return int64(v)
		case int64:
			return v
		case float64:
			return int64(v)
		}
	}
	return 0
}
