package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lithammer/dedent"
	"listing-generator/internal/generation"
	"listing-generator/internal/listing"
	"listing-generator/internal/orchestrator"
	"listing-generator/internal/session"
	"listing-generator/internal/supabase"
)

var helpText = strings.TrimSpace(dedent.Dedent(`
	Commands:
	  login <email>             sign in (password is prompted)
	  text <product details>    generate a draft from a description
	  image <path>              upload a photo and generate a draft from it
	  retry                     resubmit the last generation input
	  show                      print the current draft
	  edit title <text>         change the title
	  edit description <text>   change the description
	  edit bullets a | b | c    replace the bullet points
	  edit price <min> <max>    change the price range
	  reset                     discard the draft
	  save                      save the draft as a listing
	  copy                      print the draft formatted for pasting
	  logout                    sign out
	  help                      show this help
	  quit                      exit
`))

type signer interface {
	SignIn(ctx context.Context, email, password string) (*supabase.Session, error)
}

type shell struct {
	orch   *orchestrator.Orchestrator
	auth   signer
	in     *bufio.Scanner
	out    io.Writer
	prompt string
}

func newShell(orch *orchestrator.Orchestrator, auth signer, in io.Reader, out io.Writer) *shell {
	return &shell{
		orch:   orch,
		auth:   auth,
		in:     bufio.NewScanner(in),
		out:    out,
		prompt: "draftctl> ",
	}
}

func (s *shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

// run reads commands until EOF, quit, or ctx is done.
func (s *shell) run(ctx context.Context) error {
	s.printf("%s\n\n", helpText)
	for {
		if ctx.Err() != nil {
			return nil
		}
		s.printf("%s", s.prompt)
		if !s.in.Scan() {
			return s.in.Err()
		}
		line := strings.TrimSpace(s.in.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := s.exec(ctx, line); err != nil {
			s.report(err)
		}
	}
}

func (s *shell) exec(ctx context.Context, line string) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	switch cmd {
	case "help":
		s.printf("%s\n", helpText)
	case "login":
		return s.login(ctx, rest)
	case "text":
		return s.show(s.orch.Submit(ctx, orchestrator.Input{Mode: listing.ModeText, Text: rest}))
	case "image":
		file, err := readImage(rest)
		if err != nil {
			return err
		}
		return s.show(s.orch.Submit(ctx, orchestrator.Input{Mode: listing.ModeImage, Image: file}))
	case "retry":
		return s.show(s.orch.Retry(ctx))
	case "show":
		snap := s.orch.Snapshot()
		if snap.Draft == nil {
			s.printf("No draft yet.\n")
			return nil
		}
		s.printDraft(*snap.Draft, snap.DraftImageURL)
	case "edit":
		patch, err := parseEdit(rest)
		if err != nil {
			return err
		}
		return s.show(s.orch.UpdateDraft(ctx, patch))
	case "reset":
		if err := s.orch.ResetDraft(ctx); err != nil {
			return err
		}
		s.printf("Draft discarded.\n")
	case "save":
		saved, err := s.orch.Save(ctx)
		if err != nil {
			return err
		}
		s.printf("Saved listing %s.\n", saved.ID)
	case "copy":
		snap := s.orch.Snapshot()
		if snap.Draft == nil {
			return orchestrator.ErrNoDraft
		}
		s.printf("%s\n", listing.FormatListing(*snap.Draft))
	case "logout":
		if err := s.orch.SignOut(ctx); err != nil {
			return err
		}
		s.printf("Signed out.\n")
	default:
		return fmt.Errorf("unknown command %q, type help for a list", cmd)
	}
	return nil
}

func (s *shell) login(ctx context.Context, email string) error {
	if email == "" {
		return errors.New("usage: login <email>")
	}
	s.printf("password: ")
	if !s.in.Scan() {
		return errors.New("no password entered")
	}
	password := strings.TrimSpace(s.in.Text())

	sess, err := s.auth.SignIn(ctx, email, password)
	if err != nil {
		return err
	}
	if err := s.orch.Load(ctx); err != nil {
		return err
	}
	s.printf("Signed in as %s.\n", sess.Email)
	if snap := s.orch.Snapshot(); snap.Draft != nil {
		s.printf("Restored your unsaved draft:\n")
		s.printDraft(*snap.Draft, snap.DraftImageURL)
	}
	return nil
}

func (s *shell) show(draft listing.Draft, err error) error {
	if err != nil {
		return err
	}
	snap := s.orch.Snapshot()
	s.printDraft(draft, snap.DraftImageURL)
	return nil
}

func (s *shell) printDraft(d listing.Draft, imageURL *string) {
	s.printf("\n%s\n", listing.FormatListing(d))
	if imageURL != nil {
		s.printf("\nImage: %s\n", *imageURL)
	}
	s.printf("\n")
}

// report prints an error the way the user should see it.
func (s *shell) report(err error) {
	var inputErr *orchestrator.InputError
	var uploadErr *orchestrator.UploadError
	var providerErr *generation.ProviderError

	switch {
	case errors.As(err, &inputErr):
		s.printf("%s\n", inputErr.Message)
	case errors.As(err, &uploadErr):
		s.printf("%s\n", uploadErr.Error())
	case errors.Is(err, session.ErrSessionInvalidated):
		// the redirect hook already told the user
	case errors.As(err, &providerErr):
		s.printf("%s\n", providerErr.Message)
		if providerErr.Retryable {
			s.printf("Type retry to try again with the same input.\n")
		}
	case errors.Is(err, orchestrator.ErrGenerationInFlight):
		s.printf("Hold on, a draft is still being generated.\n")
	case errors.Is(err, supabase.ErrInvalidCredentials):
		s.printf("Sign-in failed: check your email and password.\n")
	default:
		s.printf("Error: %v\n", err)
	}
}

func readImage(path string) (*orchestrator.ImageFile, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return &orchestrator.ImageFile{
		Name:        filepath.Base(path),
		ContentType: contentTypeFor(path, data),
		Data:        data,
	}, nil
}

// contentTypeFor prefers the extension, falling back to sniffing the bytes.
func contentTypeFor(path string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); ct != "" {
		ct, _, _ = strings.Cut(ct, ";")
		return ct
	}
	return http.DetectContentType(data)
}

func parseEdit(args string) (listing.Patch, error) {
	field, value, _ := strings.Cut(strings.TrimSpace(args), " ")
	value = strings.TrimSpace(value)

	switch field {
	case "title":
		return listing.Patch{Title: &value}, nil
	case "description":
		return listing.Patch{Description: &value}, nil
	case "bullets":
		var bullets []string
		for _, b := range strings.Split(value, "|") {
			if b = strings.TrimSpace(b); b != "" {
				bullets = append(bullets, b)
			}
		}
		return listing.Patch{BulletPoints: bullets}, nil
	case "price":
		parts := strings.Fields(value)
		if len(parts) != 2 {
			return listing.Patch{}, errors.New("usage: edit price <min> <max>")
		}
		lo, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return listing.Patch{}, fmt.Errorf("invalid minimum price %q", parts[0])
		}
		hi, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return listing.Patch{}, fmt.Errorf("invalid maximum price %q", parts[1])
		}
		return listing.Patch{PriceMin: &lo, PriceMax: &hi}, nil
	default:
		return listing.Patch{}, fmt.Errorf("unknown field %q: use title, description, bullets or price", field)
	}
}
