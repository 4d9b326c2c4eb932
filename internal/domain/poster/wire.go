package poster

// CreateRequest is the body of POST /posters.
type CreateRequest struct {
	Topic      string `json:"topic,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
}

// CreateResponse is returned by POST /posters.
type CreateResponse struct {
	PosterID        string   `json:"poster_id"`
	PosterData      Document `json:"poster_data"`
	PreviewImageURL string   `json:"preview_image_url"`
}

// SectionInput is a section as sent back to the service in a full-list update.
type SectionInput struct {
	SectionID string   `json:"section_id,omitempty"`
	Title     string   `json:"section_title"`
	Content   string   `json:"section_content,omitempty"`
	ImageURLs []string `json:"image_urls"`
}

// PromptRequest is the body of POST /posters/{id}/prompt. Every field is
// optional; the service applies whichever are present.
type PromptRequest struct {
	PromptText      *string         `json:"prompt_text,omitempty"`
	TargetElementID *string         `json:"target_element_id,omitempty"`
	SelectedTheme   *string         `json:"selected_theme,omitempty"`
	StyleOverrides  *StyleOverrides `json:"style_overrides,omitempty"`
	IsDirectUpdate  bool            `json:"is_direct_update,omitempty"`
	Sections        []SectionInput  `json:"sections,omitempty"`
}

// PromptResponse is returned by POST /posters/{id}/prompt.
type PromptResponse struct {
	PosterID          string   `json:"poster_id"`
	LLMResponseText   string   `json:"llm_response_text"`
	UpdatedPosterData Document `json:"updated_poster_data"`
	PreviewImageURL   string   `json:"preview_image_url"`
}

// ExportResponse is returned by POST /posters/{id}/generate_pptx.
type ExportResponse struct {
	PosterID    string `json:"poster_id"`
	DownloadURL string `json:"download_url"`
	Message     string `json:"message"`
}

// ErrorBody is the error shape the service may attach to non-2xx responses.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// SectionInputs converts sections to the full-list update shape.
func SectionInputs(sections []Section) []SectionInput {
	out := make([]SectionInput, len(sections))
	for i, s := range sections {
		out[i] = SectionInput{
			SectionID: s.SectionID,
			Title:     s.Title,
			Content:   s.Content,
			ImageURLs: append([]string{}, s.ImageURLs...),
		}
	}
	return out
}
