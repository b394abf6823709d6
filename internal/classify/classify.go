// Package classify assigns pipeline roles to remote entries based on their
// display name and MIME type. Classification is pure and total: every entry
// maps to exactly one role, and the allow-lists are configuration so alternate
// deployments can extend them.
package classify

import "strings"

// Role describes how the processor treats a remote entry.
type Role string

const (
	// RoleVideo marks the entry that will be downloaded and overlaid.
	RoleVideo Role = "video"
	// RolePrompt marks the entry whose text becomes the overlay's second line.
	RolePrompt Role = "prompt"
	// RoleOther marks entries the pipeline ignores.
	RoleOther Role = "other"
)

// DefaultVideoExtensions lists the video container extensions recognized out
// of the box.
func DefaultVideoExtensions() []string {
	return []string{".mp4", ".mov", ".mkv", ".avi", ".flv", ".wmv"}
}

// DefaultPromptExtensions lists the document extensions recognized as prompt
// files out of the box.
func DefaultPromptExtensions() []string {
	return []string{".txt", ".text", ".pages", ".doc", ".docx"}
}

// DefaultPromptMIMETypes lists the MIME types recognized as prompt documents
// out of the box. Google Workspace document types are included because the
// store reports them without a file extension.
func DefaultPromptMIMETypes() []string {
	return []string{
		"text/plain",
		"application/octet-stream",
		"application/vnd.google-apps.document",
		"application/vnd.google-apps.form",
		"application/vnd.apple.pages",
		"application/x-appleworks",
		"application/vnd.google-apps.file",
		"application/x-submission-text",
		"application/vnd.ms-word.document.macroEnabled.12",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Classifier maps entry metadata to roles using configurable allow-lists.
type Classifier struct {
	videoExtensions  []string
	promptExtensions []string
	promptMIMETypes  map[string]struct{}
}

// New builds a classifier from the provided allow-lists. Empty lists fall
// back to the package defaults so a zero-value config still classifies.
func New(videoExtensions, promptExtensions, promptMIMETypes []string) *Classifier {
	if len(videoExtensions) == 0 {
		videoExtensions = DefaultVideoExtensions()
	}
	if len(promptExtensions) == 0 {
		promptExtensions = DefaultPromptExtensions()
	}
	if len(promptMIMETypes) == 0 {
		promptMIMETypes = DefaultPromptMIMETypes()
	}

	mimes := make(map[string]struct{}, len(promptMIMETypes))
	for _, m := range promptMIMETypes {
		mimes[strings.ToLower(strings.TrimSpace(m))] = struct{}{}
	}
	return &Classifier{
		videoExtensions:  normalizeExtensions(videoExtensions),
		promptExtensions: normalizeExtensions(promptExtensions),
		promptMIMETypes:  mimes,
	}
}

// Default returns a classifier using the built-in allow-lists.
func Default() *Classifier {
	return New(nil, nil, nil)
}

// Classify returns the role for an entry with the given display name and MIME
// type. Video wins over prompt when both match, mirroring the selection order
// the processor relies on.
func (c *Classifier) Classify(name, mimeType string) Role {
	lowerName := strings.ToLower(strings.TrimSpace(name))
	lowerMIME := strings.ToLower(strings.TrimSpace(mimeType))

	if strings.Contains(lowerMIME, "video") || hasAnySuffix(lowerName, c.videoExtensions) {
		return RoleVideo
	}
	if _, ok := c.promptMIMETypes[lowerMIME]; ok {
		return RolePrompt
	}
	if hasAnySuffix(lowerName, c.promptExtensions) {
		return RolePrompt
	}
	return RoleOther
}

func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		out = append(out, ext)
	}
	return out
}

func hasAnySuffix(name string, suffixes []string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}
