package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/kevinchung58/Paper2Poster/internal/domain/poster"
	"github.com/kevinchung58/Paper2Poster/internal/domain/session"
	"github.com/kevinchung58/Paper2Poster/internal/infrastructure/monitoring"
	"github.com/kevinchung58/Paper2Poster/internal/shared/utils"
	"go.uber.org/zap"
)

// Operation names, used in logs, metrics and generic failure messages.
const (
	OpCreatePoster  = "create_poster"
	OpSendPrompt    = "send_prompt"
	OpSetTheme      = "set_theme"
	OpSetStyles     = "set_style_overrides"
	OpDirectEdit    = "direct_edit"
	OpSectionImages = "set_section_images"
	OpUploadImage   = "upload_image"
	OpExport        = "export"
)

func invalid(err error) error {
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

// CreatePoster discards the current poster and creates a new one, optionally
// seeded with topic.
func (d *Dispatcher) CreatePoster(ctx context.Context, topic string) (session.State, error) {
	topic = strings.TrimSpace(topic)
	if topic != "" {
		if err := utils.ValidateText("topic", topic, utils.MaxTopicLength); err != nil {
			o, berr := d.begin(ctx, OpCreatePoster)
			if berr != nil {
				return session.State{}, berr
			}
			return o.failed(ctx, invalid(err))
		}
	}

	timer := monitoring.NewTimer(d.metrics, OpCreatePoster)
	state, err := d.store.Dispatch(ctx, session.SessionResetRequested{})
	if err != nil {
		return state, err
	}
	o := &op{d: d, name: OpCreatePoster, ticket: state.Ticket(), state: state, timer: timer}

	res, err := d.api.CreatePoster(ctx, topic)
	if err != nil {
		return o.failed(ctx, err)
	}

	timer.Stop("success")
	d.logger.Info("Poster created", zap.String("poster_id", res.PosterID))

	note := session.CreatedNote
	if title := utils.StripMarkup(res.PosterData.Title); title != "" {
		note = fmt.Sprintf("New poster %q created.", title)
	}
	return d.store.Dispatch(context.WithoutCancel(ctx), session.SessionCreated{
		Ticket:     o.ticket,
		PosterID:   res.PosterID,
		Document:   &res.PosterData,
		PreviewRef: res.PreviewImageURL,
		Note:       note,
	})
}

// SendPrompt records the user's prompt and asks the service to act on it.
// An empty targetRef falls back to the session's active target.
func (d *Dispatcher) SendPrompt(ctx context.Context, text, targetRef string) (session.State, error) {
	text = strings.TrimSpace(text)
	snap := d.store.Snapshot()

	// The user's words are logged before anything can fail.
	if snap.HasPoster() && text != "" {
		if _, err := d.store.Dispatch(ctx, session.UserMessageAppended{Text: text}); err != nil {
			return session.State{}, err
		}
	}

	o, err := d.begin(ctx, OpSendPrompt)
	if err != nil {
		return session.State{}, err
	}
	if !o.state.HasPoster() {
		return o.failed(ctx, ErrNoSession)
	}
	if err := utils.ValidateText("prompt", text, utils.MaxPromptLength); err != nil {
		return o.failed(ctx, invalid(err))
	}

	if targetRef == "" {
		targetRef = o.state.ActiveTarget
	}
	req := poster.PromptRequest{PromptText: &text}
	if targetRef != "" {
		if _, err := poster.ParseTarget(targetRef); err != nil {
			return o.failed(ctx, invalid(err))
		}
		req.TargetElementID = &targetRef
	}

	res, err := d.api.Prompt(ctx, o.state.PosterID, req)
	if err != nil {
		return o.failed(ctx, err)
	}
	return o.replaced(ctx, &res.UpdatedPosterData, res.PreviewImageURL, res.LLMResponseText, session.SenderAssistant)
}

// SetTheme switches the poster theme. Selecting the current theme does nothing.
func (d *Dispatcher) SetTheme(ctx context.Context, theme string) (session.State, error) {
	snap := d.store.Snapshot()
	if snap.HasPoster() && snap.Theme() == theme {
		return snap, nil
	}

	o, err := d.begin(ctx, OpSetTheme)
	if err != nil {
		return session.State{}, err
	}
	if !o.state.HasPoster() {
		return o.failed(ctx, ErrNoSession)
	}
	if d.themes != nil && !d.themes.Has(theme) {
		return o.failed(ctx, fmt.Errorf("%w %q", ErrUnknownTheme, theme))
	}

	res, err := d.api.Prompt(ctx, o.state.PosterID, poster.PromptRequest{
		SelectedTheme:  &theme,
		IsDirectUpdate: true,
	})
	if err != nil {
		return o.failed(ctx, err)
	}
	return o.replaced(ctx, &res.UpdatedPosterData, res.PreviewImageURL, directNote(res, "Theme changed to "+theme+"."), session.SenderSystem)
}

// SetStyleOverrides replaces the poster's style overrides. Callers debounce.
func (d *Dispatcher) SetStyleOverrides(ctx context.Context, overrides poster.StyleOverrides) (session.State, error) {
	o, err := d.begin(ctx, OpSetStyles)
	if err != nil {
		return session.State{}, err
	}
	if !o.state.HasPoster() {
		return o.failed(ctx, ErrNoSession)
	}
	if err := ValidateOverrides(overrides); err != nil {
		return o.failed(ctx, invalid(err))
	}

	res, err := d.api.Prompt(ctx, o.state.PosterID, poster.PromptRequest{
		StyleOverrides: &overrides,
		IsDirectUpdate: true,
	})
	if err != nil {
		return o.failed(ctx, err)
	}
	return o.replaced(ctx, &res.UpdatedPosterData, res.PreviewImageURL, directNote(res, "Styles updated."), session.SenderSystem)
}

// DirectEditElement replaces the text of one element without the LLM.
// Callers only invoke it when the value actually changed.
func (d *Dispatcher) DirectEditElement(ctx context.Context, targetRef, text string) (session.State, error) {
	o, err := d.begin(ctx, OpDirectEdit)
	if err != nil {
		return session.State{}, err
	}
	if !o.state.HasPoster() {
		return o.failed(ctx, ErrNoSession)
	}
	if _, err := poster.ParseTarget(targetRef); err != nil {
		return o.failed(ctx, invalid(err))
	}
	if _, ok := o.state.Content.Value(targetRef); !ok {
		return o.failed(ctx, fmt.Errorf("%w: %s", ErrSectionNotFound, targetRef))
	}
	if len(text) > utils.MaxElementLength {
		return o.failed(ctx, invalid(fmt.Errorf("text exceeds %d characters", utils.MaxElementLength)))
	}

	res, err := d.api.Prompt(ctx, o.state.PosterID, poster.PromptRequest{
		PromptText:      &text,
		TargetElementID: &targetRef,
		IsDirectUpdate:  true,
	})
	if err != nil {
		return o.failed(ctx, err)
	}
	return o.replaced(ctx, &res.UpdatedPosterData, res.PreviewImageURL, directNote(res, ""), session.SenderSystem)
}

// SetSectionImageURLs replaces the image list of one section by sending the
// full section list back to the service.
func (d *Dispatcher) SetSectionImageURLs(ctx context.Context, sectionID string, urls []string) (session.State, error) {
	o, err := d.begin(ctx, OpSectionImages)
	if err != nil {
		return session.State{}, err
	}
	if !o.state.HasPoster() {
		return o.failed(ctx, ErrNoSession)
	}
	if _, ok := o.state.Content.Section(sectionID); !ok {
		return o.failed(ctx, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID))
	}
	if err := utils.ValidateImageURLs(urls); err != nil {
		return o.failed(ctx, invalid(err))
	}

	sections := poster.SectionInputs(o.state.Content.Sections)
	for i := range sections {
		if sections[i].SectionID == sectionID {
			sections[i].ImageURLs = append([]string{}, urls...)
		}
	}

	res, err := d.api.Prompt(ctx, o.state.PosterID, poster.PromptRequest{
		Sections:       sections,
		IsDirectUpdate: true,
	})
	if err != nil {
		return o.failed(ctx, err)
	}
	return o.replaced(ctx, &res.UpdatedPosterData, res.PreviewImageURL, directNote(res, "Section images updated."), session.SenderSystem)
}

// UploadSectionImage uploads an image into a section.
func (d *Dispatcher) UploadSectionImage(ctx context.Context, sectionID, filename string, data []byte) (session.State, error) {
	o, err := d.begin(ctx, OpUploadImage)
	if err != nil {
		return session.State{}, err
	}
	if !o.state.HasPoster() {
		return o.failed(ctx, ErrNoSession)
	}
	if _, ok := o.state.Content.Section(sectionID); !ok {
		return o.failed(ctx, fmt.Errorf("%w: %s", ErrSectionNotFound, sectionID))
	}
	if _, err := utils.ValidateImageUpload(filename, data, d.maxUpload); err != nil {
		return o.failed(ctx, invalid(err))
	}

	doc, err := d.api.UploadSectionImage(ctx, o.state.PosterID, sectionID, filename, data)
	if err != nil {
		return o.failed(ctx, err)
	}
	return o.replaced(ctx, doc, "", fmt.Sprintf("Image %q added.", filename), session.SenderSystem)
}

// RequestExport asks the service to build the slide deck and hands the
// result to the exporter. The document is not changed.
func (d *Dispatcher) RequestExport(ctx context.Context) (session.State, error) {
	o, err := d.begin(ctx, OpExport)
	if err != nil {
		return session.State{}, err
	}
	if !o.state.HasPoster() {
		return o.failed(ctx, ErrNoSession)
	}

	res, err := d.api.GeneratePPTX(ctx, o.state.PosterID)
	if err != nil {
		return o.failed(ctx, err)
	}

	location := res.DownloadURL
	if d.exporter != nil {
		loc, err := d.exporter.Export(ctx, o.state.PosterID, res)
		if err != nil {
			return o.failed(ctx, err)
		}
		location = loc
	}

	note := "Export ready: " + location
	if msg := utils.StripMarkup(res.Message); msg != "" {
		note = msg + " " + note
	}
	return o.completed(ctx, note)
}

// SelectTarget sets the element subsequent prompts apply to. An empty ref
// clears it.
func (d *Dispatcher) SelectTarget(ctx context.Context, ref string) (session.State, error) {
	if ref != "" {
		if _, err := poster.ParseTarget(ref); err != nil {
			return d.store.Snapshot(), invalid(err)
		}
	}
	return d.store.Dispatch(ctx, session.TargetSelected{Ref: ref})
}

// directNote prefers the service's own confirmation for a direct update.
func directNote(res *poster.PromptResponse, fallback string) string {
	if res.LLMResponseText != "" {
		return res.LLMResponseText
	}
	return fallback
}

// ValidateOverrides checks every value in overrides.
func ValidateOverrides(o poster.StyleOverrides) error {
	if o.SlideBackground != nil {
		if err := utils.ValidateColor(*o.SlideBackground); err != nil {
			return fmt.Errorf("slide_background: %w", err)
		}
	}
	for _, t := range poster.StyleTargets {
		e := o.Element(t)
		if e == nil {
			continue
		}
		if e.FontSize != nil {
			if err := utils.ValidateFontSize(*e.FontSize); err != nil {
				return fmt.Errorf("%s: %w", t, err)
			}
		}
		if e.Color != nil {
			if err := utils.ValidateColor(*e.Color); err != nil {
				return fmt.Errorf("%s: %w", t, err)
			}
		}
		if e.FontFamily != nil {
			if err := utils.ValidateFontFamily(*e.FontFamily); err != nil {
				return fmt.Errorf("%s: %w", t, err)
			}
		}
	}
	return nil
}
