package llm

// Schemas passed to the model inside the prompt and enforced locally on the
// response. Kept as generic maps so they marshal straight into prompt text.

// ResumeSchema describes the structured-resume document.
func ResumeSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"basics"},
		"properties": map[string]any{
			"basics": map[string]any{
				"type":     "object",
				"required": []string{"name"},
				"properties": map[string]any{
					"name":     map[string]any{"type": "string", "minLength": 1},
					"email":    map[string]any{"type": "string"},
					"phone":    map[string]any{"type": "string"},
					"headline": map[string]any{"type": "string"},
					"location": map[string]any{"type": "string"},
					"summary":  map[string]any{"type": "string"},
				},
			},
			"skills": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
			"experience": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type":     "object",
					"required": []string{"company", "title"},
					"properties": map[string]any{
						"company":    map[string]any{"type": "string"},
						"title":      map[string]any{"type": "string"},
						"start_date": map[string]any{"type": "string"},
						"end_date":   map[string]any{"type": "string"},
						"highlights": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					},
				},
			},
			"education": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"institution": map[string]any{"type": "string"},
						"degree":      map[string]any{"type": "string"},
						"year":        map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

// QuestionsSchema wraps the generated interview questions.
func QuestionsSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": 1,
				"items":    map[string]any{"type": "string", "minLength": 1},
			},
		},
	}
}

// FeedbackSchema describes per-answer interview feedback.
func FeedbackSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"score", "feedback"},
		"properties": map[string]any{
			"score":    map[string]any{"type": "integer", "minimum": 0, "maximum": 10},
			"feedback": map[string]any{"type": "string", "minLength": 1},
		},
	}
}

// ReviewSchema describes an application review.
func ReviewSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"required":             []string{"score", "strengths", "gaps", "suggestions"},
		"properties": map[string]any{
			"score":       map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
			"strengths":   map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"gaps":        map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"suggestions": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
	}
}
