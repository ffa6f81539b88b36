package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"image4marketing/internal/domain"
	"image4marketing/internal/providers/image"
	"image4marketing/internal/storage"
)

// MinInstructionLength is the shortest refinement instruction accepted by
// Regenerate, counted in characters after trimming.
const MinInstructionLength = 10

// DefaultTimeout bounds one generation round trip.
const DefaultTimeout = 90 * time.Second

// Storage folders.
const (
	folderOriginals = "originals"
	folderGenerated = "generated"
)

// Deps wires the collaborators of a Service.
type Deps struct {
	Sessions  domain.SessionRepository
	Images    domain.ImageRepository
	Media     storage.Store
	Generator image.Generator
	Logger    zerolog.Logger
	// Timeout bounds provider and media calls of one operation.
	Timeout        time.Duration
	MaxUploadBytes int64
	// AppURL prefixes share links.
	AppURL string
}

// Service runs the editing workflow. Mutating operations on the same
// session are serialised; different sessions proceed in parallel.
type Service struct {
	sessions  domain.SessionRepository
	images    domain.ImageRepository
	media     storage.Store
	generator image.Generator
	logger    zerolog.Logger
	timeout   time.Duration
	maxUpload int64
	appURL    string
	locks     *keyedLocks
}

// NewService builds a Service from deps.
func NewService(deps Deps) *Service {
	timeout := deps.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxUpload := deps.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUploadBytes
	}
	return &Service{
		sessions:  deps.Sessions,
		images:    deps.Images,
		media:     deps.Media,
		generator: deps.Generator,
		logger:    deps.Logger,
		timeout:   timeout,
		maxUpload: maxUpload,
		appURL:    strings.TrimRight(deps.AppURL, "/"),
		locks:     newKeyedLocks(),
	}
}

// MaxUploadBytes reports the upload size limit.
func (s *Service) MaxUploadBytes() int64 { return s.maxUpload }

// UploadInput is a received image file.
type UploadInput struct {
	ContentType string
	Data        []byte
}

// UploadResult is the handle of a stored original. UploadID is the object
// name the media store picked for the file; later calls address the original
// by ImageURL.
type UploadResult struct {
	UploadID string
	ImageURL string
	Metadata ImageMetadata
}

// Upload validates and stores an original photo.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	if err := CheckUpload(in.ContentType, int64(len(in.Data)), s.maxUpload); err != nil {
		return nil, err
	}
	meta, err := inspectImage(in.Data)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	u, err := s.media.Put(ctx, folderOriginals, in.Data, mimeFor(meta.Format))
	if err != nil {
		return nil, domain.Provider("could not store the uploaded image", err)
	}
	return &UploadResult{UploadID: uploadID(u), ImageURL: u, Metadata: meta}, nil
}

// uploadID is the stored object's name without folder or extension.
func uploadID(mediaURL string) string {
	p := mediaURL
	if parsed, err := url.Parse(mediaURL); err == nil {
		p = parsed.Path
	}
	name := path.Base(p)
	name = strings.TrimSuffix(name, path.Ext(name))
	if name == "" || name == "." || name == "/" {
		return uuid.NewString()
	}
	return name
}

// GenerateInput starts a new session from an uploaded original.
type GenerateInput struct {
	ImageURL    string
	StylePrompt string
	OwnerID     string
	Locale      string
	RequestID   string
}

// Generate requests one image per variation prompt and stores them in a new
// session. Either every variant is persisted or none is.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*domain.Session, error) {
	source := strings.TrimSpace(in.ImageURL)
	if source == "" {
		return nil, domain.Validation("imageUrl is required")
	}
	if !isAbsoluteURL(source) {
		return nil, domain.Validation("imageUrl must be an absolute http(s) URL")
	}

	prompts := image.VariationPrompts(in.StylePrompt)
	results := make([]*image.Result, len(prompts))
	start := time.Now()

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	g, gctx := errgroup.WithContext(genCtx)
	for i, prompt := range prompts {
		g.Go(func() error {
			res, err := s.generator.Generate(gctx, image.Request{
				Mode:           image.ModeGenerate,
				Prompt:         prompt,
				SourceImageURL: source,
				Variant:        i,
				RequestID:      in.RequestID,
			})
			if err != nil {
				return fmt.Errorf("variant %d: %w", i, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.Warn().Err(err).Str("provider", s.generator.Name()).Str("request_id", in.RequestID).Msg("generation failed")
		return nil, providerError(genCtx, "image generation failed", err)
	}

	// Nothing reaches the media store until every variant came back.
	drafts := make([]domain.ImageDraft, len(prompts))
	for i, res := range results {
		u, err := s.persist(genCtx, res)
		if err != nil {
			return nil, providerError(genCtx, "could not store the generated images", fmt.Errorf("variant %d: %w", i, err))
		}
		drafts[i] = domain.ImageDraft{URL: u, Prompt: prompts[i]}
	}

	session, err := s.sessions.CreateWithImages(ctx, domain.Session{
		OriginalImage: source,
		OwnerID:       in.OwnerID,
		Locale:        in.Locale,
	}, drafts)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	s.logger.Info().
		Str("session_id", session.ID).
		Str("provider", s.generator.Name()).
		Int("images", len(session.Images)).
		Dur("duration", time.Since(start)).
		Msg("session generated")
	return session, nil
}

// Select pins imageID as the session's selected image.
func (s *Service) Select(ctx context.Context, sessionID, imageID, callerID string) (*domain.Session, error) {
	unlock, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.loadOwned(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := Next(Derive(session), ActionSelect); err != nil {
		return nil, err
	}
	if _, ok := session.Image(imageID); !ok {
		return nil, domain.NotFound("image not found in session")
	}
	if err := s.sessions.SetSelected(ctx, sessionID, imageID); err != nil {
		return nil, err
	}
	session.SelectedImageID = imageID
	return session, nil
}

// RegenerateInput refines one image of a session.
type RegenerateInput struct {
	SessionID   string
	ImageID     string
	Instruction string
	CallerID    string
	RequestID   string
}

// Regenerate edits an image in place: its id and session stay, its url and
// prompt are replaced. The image becomes the session's selection in the same
// write, so a failed call leaves the session as it was.
func (s *Service) Regenerate(ctx context.Context, in RegenerateInput) (*domain.GeneratedImage, error) {
	instruction := strings.TrimSpace(in.Instruction)
	if utf8.RuneCountInString(instruction) < MinInstructionLength {
		return nil, domain.Validation(fmt.Sprintf("the modification instruction must be at least %d characters", MinInstructionLength))
	}
	if in.SessionID == "" || in.ImageID == "" {
		return nil, domain.Validation("sessionId and imageId are required")
	}

	unlock, err := s.locks.acquire(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.loadOwned(ctx, in.SessionID, in.CallerID)
	if err != nil {
		return nil, err
	}
	if _, err := Next(Derive(session), ActionRegenerate); err != nil {
		return nil, err
	}
	img, ok := session.Image(in.ImageID)
	if !ok {
		return nil, domain.NotFound("image not found in session")
	}

	prompt := image.CombinePrompt(img.Prompt, instruction)
	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.generator.Generate(genCtx, image.Request{
		Mode:           image.ModeEdit,
		Prompt:         prompt,
		SourceImageURL: img.URL,
		RequestID:      in.RequestID,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("session_id", in.SessionID).Str("image_id", img.ID).Msg("regeneration failed")
		return nil, providerError(genCtx, "image regeneration failed", err)
	}
	u, err := s.persist(genCtx, res)
	if err != nil {
		return nil, providerError(genCtx, "could not store the regenerated image", err)
	}

	updated, err := s.images.UpdateContent(ctx, session.ID, img.ID, u, prompt)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("session_id", session.ID).Str("image_id", img.ID).Msg("image regenerated")
	return updated, nil
}

// ValidateResult carries the finalized image and its share handle.
type ValidateResult struct {
	Image    domain.GeneratedImage
	ShareURL string
}

// Validate flags imageID final and validated. Validating the image that is
// already final returns the same result again.
func (s *Service) Validate(ctx context.Context, sessionID, imageID, callerID string) (*ValidateResult, error) {
	if sessionID == "" || imageID == "" {
		return nil, domain.Validation("sessionId and finalImageId are required")
	}
	unlock, err := s.locks.acquire(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	session, err := s.loadOwned(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}
	if _, ok := session.Image(imageID); !ok {
		return nil, domain.NotFound("image not found in session")
	}
	if final, ok := session.FinalImage(); ok {
		if final.ID == imageID {
			return &ValidateResult{Image: final, ShareURL: s.ShareURL(sessionID, imageID)}, nil
		}
		return nil, domain.Conflict("another image of this session is already validated")
	}

	stage := Derive(session)
	if stage == StageModify {
		// Validating straight from the grid selects the image; MarkFinal
		// pins the selection.
		if stage, err = Next(stage, ActionSelect); err != nil {
			return nil, err
		}
	}
	if _, err := Next(stage, ActionValidate); err != nil {
		return nil, err
	}

	marked, err := s.images.MarkFinal(ctx, sessionID, imageID)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("session_id", sessionID).Str("image_id", imageID).Msg("image validated")
	return &ValidateResult{Image: *marked, ShareURL: s.ShareURL(sessionID, imageID)}, nil
}

// SessionView is a session with its derived stage.
type SessionView struct {
	Session *domain.Session
	Stage   Stage
}

// Get loads a session visible to callerID.
func (s *Service) Get(ctx context.Context, sessionID, callerID string) (*SessionView, error) {
	session, err := s.loadOwned(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}
	return &SessionView{Session: session, Stage: Derive(session)}, nil
}

// Share resolves a share handle. It is public and ignores ownership.
func (s *Service) Share(ctx context.Context, sessionID, imageID string) (*domain.GeneratedImage, error) {
	return s.images.GetInSession(ctx, sessionID, imageID)
}

// ShareURL derives the public link of an image from its session and id.
func (s *Service) ShareURL(sessionID, imageID string) string {
	return s.appURL + "/share/" + url.PathEscape(sessionID) + "/" + url.PathEscape(imageID)
}

func (s *Service) loadOwned(ctx context.Context, sessionID, callerID string) (*domain.Session, error) {
	if sessionID == "" {
		return nil, domain.Validation("sessionId is required")
	}
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsOwnedBy(callerID) {
		return nil, domain.Permission("this session belongs to another user")
	}
	return session, nil
}

// persist returns a durable URL for a provider result, uploading raw bytes
// to the media store.
func (s *Service) persist(ctx context.Context, res *image.Result) (string, error) {
	switch {
	case res == nil:
		return "", errors.New("provider returned no image")
	case len(res.Data) > 0:
		return s.media.Put(ctx, folderGenerated, res.Data, res.MIME)
	case res.URL != "":
		return res.URL, nil
	default:
		return "", errors.New("provider returned an empty image")
	}
}

func providerError(ctx context.Context, msg string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Provider(msg+": the provider timed out", err)
	}
	return domain.Provider(msg, err)
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
