package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Model input is capped so oversized job descriptions or resume dumps don't
// blow the context window.
const maxInputChars = 20000

func clip(s string) string {
	if len(s) > maxInputChars {
		return s[:maxInputChars]
	}
	return s
}

func schemaJSON(schema map[string]any) string {
	b, _ := json.MarshalIndent(schema, "", "  ")
	return string(b)
}

// CoverLetterPrompt asks for plain text, not JSON.
func CoverLetterPrompt(profileJSON, jobTitle, company, jobDescription, tone string) string {
	if tone == "" {
		tone = "professional and direct"
	}
	return fmt.Sprintf(`You are an expert career writer. Write a cover letter for the candidate below.

### CANDIDATE PROFILE (JSON):
%s

### TARGET ROLE:
Title: %s
Company: %s

### JOB DESCRIPTION:
%s

### INSTRUCTIONS:
1. Keep it under 350 words, tone: %s.
2. Reference 2-3 concrete overlaps between the candidate's experience and the role.
3. Do not invent employers, dates, or credentials that are not in the profile.
4. Output the letter text only. No subject line, no markdown, no commentary.`,
		clip(profileJSON), jobTitle, company, clip(jobDescription), tone)
}

// CustomizeResumePrompt asks for tailored plain-text resume content.
func CustomizeResumePrompt(resumeJSON, jobTitle, company, jobDescription string) string {
	return fmt.Sprintf(`You are an expert resume editor. Rewrite the resume below so it targets the given role.

### CURRENT RESUME (JSON):
%s

### TARGET ROLE:
Title: %s
Company: %s

### JOB DESCRIPTION:
%s

### INSTRUCTIONS:
1. Reorder and reword bullet points to emphasize experience relevant to this role.
2. Keep every fact truthful to the source resume. Never fabricate.
3. Mirror terminology from the job description where the candidate genuinely has the skill.
4. Output the full tailored resume as plain text, sections separated by blank lines. No markdown fences, no commentary.`,
		clip(resumeJSON), jobTitle, company, clip(jobDescription))
}

// ExtractResumePrompt turns raw PDF text into the structured resume document.
func ExtractResumePrompt(rawText string) string {
	return fmt.Sprintf(`You are a resume parsing agent. Convert the raw resume text into structured data.

### INSTRUCTIONS:
1. Extract the fields defined by the schema below. Omit fields that are absent; never output null.
2. Dates as free-form strings exactly as written (e.g. "Jan 2022", "2019").
3. Format the output as valid JSON only. Do not wrap it in markdown code blocks.

### JSON SCHEMA:
%s

### RAW RESUME TEXT:
%s`, schemaJSON(ResumeSchema()), clip(rawText))
}

// InterviewQuestionsPrompt generates n questions for a role.
func InterviewQuestionsPrompt(role, jobDescription string, n int) string {
	var b strings.Builder
	fmt.Fprintf(&b, `You are an experienced interviewer preparing a practice session for the role: %s.

`, role)
	if jobDescription != "" {
		fmt.Fprintf(&b, "### JOB DESCRIPTION:\n%s\n\n", clip(jobDescription))
	}
	fmt.Fprintf(&b, `### INSTRUCTIONS:
1. Produce exactly %d interview questions: a mix of behavioral and role-specific technical questions.
2. Each question must be self-contained and answerable verbally in a few minutes.
3. Format the output as valid JSON only, matching this schema. No markdown code blocks.

### JSON SCHEMA:
%s`, n, schemaJSON(QuestionsSchema()))
	return b.String()
}

// AnswerFeedbackPrompt scores a single interview answer.
func AnswerFeedbackPrompt(role, question, answer string) string {
	return fmt.Sprintf(`You are an interview coach evaluating a candidate's answer for the role: %s.

### QUESTION:
%s

### CANDIDATE ANSWER:
%s

### INSTRUCTIONS:
1. Score the answer 0-10 (10 = excellent: specific, structured, relevant).
2. Give 2-4 sentences of actionable feedback.
3. Format the output as valid JSON only, matching this schema. No markdown code blocks.

### JSON SCHEMA:
%s`, role, question, clip(answer), schemaJSON(FeedbackSchema()))
}

// ReviewApplicationPrompt evaluates a resume against a job posting.
func ReviewApplicationPrompt(resumeText, jobTitle, company, jobDescription string) string {
	return fmt.Sprintf(`You are a hiring manager reviewing an application.

### CANDIDATE RESUME:
%s

### ROLE:
Title: %s
Company: %s

### JOB DESCRIPTION:
%s

### INSTRUCTIONS:
1. Score the fit 0-100.
2. List concrete strengths, gaps, and suggestions (each as short phrases).
3. Base everything strictly on the texts above; do not guess at unstated experience.
4. Format the output as valid JSON only, matching this schema. No markdown code blocks.

### JSON SCHEMA:
%s`, clip(resumeText), jobTitle, company, clip(jobDescription), schemaJSON(ReviewSchema()))
}
