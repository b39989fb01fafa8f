package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/receiptpal/receiptpal/internal/client"
)

// Backend is the subset of the backend API the app drives
type Backend interface {
	ProcessImage(ctx context.Context, imageDataURL, userID string) (string, error)
	Chat(ctx context.Context, question, userID, sessionID string) (*client.Reply, error)
	CreateWalletPass(ctx context.Context, email string, pass client.PassData) (string, error)
}

// Identity reports the signed-in subject, if any
type Identity interface {
	UserID() (string, bool)
}

// App ties the capture surface, identity, and backend together. Every failure
// is routed through the notifier and leaves the app in a recoverable state;
// preconditions are checked before any network call is made.
type App struct {
	backend   Backend
	identity  Identity
	capture   *Capture
	notifier  Notifier
	navigator Navigator

	lastSessionID string
	answer        string
	pass          *client.PassData
}

// New creates an App over the given collaborators
func New(backend Backend, identity Identity, device Device, notifier Notifier, navigator Navigator) *App {
	return &App{
		backend:   backend,
		identity:  identity,
		capture:   NewCapture(device),
		notifier:  notifier,
		navigator: navigator,
	}
}

// Capture exposes the capture surface
func (a *App) Capture() *Capture {
	return a.capture
}

// Answer returns the most recent plain-text chat answer
func (a *App) Answer() string {
	return a.answer
}

// Pass returns the pending pass-builder payload, if any
func (a *App) Pass() *client.PassData {
	return a.pass
}

// LastSessionID returns the session correlation id from the latest upload
func (a *App) LastSessionID() string {
	return a.lastSessionID
}

// Upload sends the captured image for analysis. On success the captured
// image is cleared and the returned session id retained for chat calls.
func (a *App) Upload(ctx context.Context) error {
	image, ok := a.capture.Image()
	if !ok {
		return a.fail("Please capture or select a receipt image first.")
	}
	userID, ok := a.identity.UserID()
	if !ok {
		return a.fail("Sign-in is not ready yet. Please try again in a moment.")
	}

	sessionID, err := a.backend.ProcessImage(ctx, image, userID)
	if err != nil {
		return a.fail(fmt.Sprintf("Upload failed: %v", err))
	}

	a.lastSessionID = sessionID
	a.capture.Retake()
	a.notifier.Notify("Receipt uploaded and analyzed successfully!")
	return nil
}

// Ask submits a chat question. Pass-builder replies populate the pass
// payload; anything else becomes the displayed answer.
func (a *App) Ask(ctx context.Context, question string) error {
	question = strings.TrimSpace(question)
	if question == "" {
		return a.fail("Please enter a question.")
	}
	userID, ok := a.identity.UserID()
	if !ok {
		return a.fail("Sign-in is not ready yet. Please try again in a moment.")
	}

	reply, err := a.backend.Chat(ctx, question, userID, a.lastSessionID)
	if err != nil {
		return a.fail(fmt.Sprintf("Chat failed: %v", err))
	}

	if reply.Pass != nil {
		a.pass = reply.Pass
		a.answer = ""
	} else {
		a.answer = reply.Text
		a.pass = nil
	}
	return nil
}

// SubmitPass sends the pending pass payload with the user's email and hands
// the browser off to the returned save URL
func (a *App) SubmitPass(ctx context.Context, email string) error {
	if a.pass == nil {
		return a.fail("There is no grocery list to save.")
	}
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return a.fail("Please enter a valid email address.")
	}

	saveURL, err := a.backend.CreateWalletPass(ctx, email, *a.pass)
	if err != nil {
		return a.fail(fmt.Sprintf("Could not create wallet pass: %v", err))
	}

	a.pass = nil
	if err := a.navigator.Navigate(saveURL); err != nil {
		return a.fail(fmt.Sprintf("Could not open wallet pass: %v", err))
	}
	return nil
}

// Close releases held resources (the camera stream in particular)
func (a *App) Close() {
	a.capture.Close()
}

func (a *App) fail(message string) error {
	a.notifier.Notify(message)
	return fmt.Errorf("%s", message)
}
