// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package web

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pdiddy/florafind/internal/auth"
	"github.com/pdiddy/florafind/internal/profile"
	"github.com/pdiddy/florafind/pkg/types"
)

// pageData is the view model shared by all pages.
type pageData struct {
	Title  string
	User   *types.User
	Error  string
	Notice string

	// Form state.
	Email string
	Next  string
	Token string
	Query string

	Plant   string
	Profile *types.PlantProfile
	Scan    *types.ScanResult

	Plans     []types.Plan
	Features  []string
	TrialDays int
	Steps     []welcomeStep
}

type welcomeStep struct {
	Title string
	Body  string
}

var welcomeSteps = []welcomeStep{
	{"Welcome to FloraFind", "Your guide to the plant world, backed by scientific sources."},
	{"Search any plant", "Type a common or scientific name to get a full botanical profile."},
	{"Identify with a photo", "Snap a picture and let FloraFind tell you what is growing."},
	{"Read the science", "Every profile links PubMed articles and botanical databases."},
}

func (s *Server) page(r *http.Request, title string) *pageData {
	return &pageData{Title: title, User: auth.FromContext(r.Context()).User()}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data *pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	var buf strings.Builder
	if err := s.templates.Render(&buf, name, data); err != nil {
		s.log.WithError(err).WithField("page", name).Error("rendering page")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(status)
	_, _ = io.WriteString(w, buf.String())
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	data := s.page(r, "Something went wrong")
	data.Error = msg
	s.render(w, status, "error.html", data)
}

// statusFor maps a service error to an HTTP status. Errors the caller can
// fix are 400; anything else gets fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, profile.ErrEmptyPlantName),
		errors.Is(err, profile.ErrInvalidPhoto),
		errors.Is(err, profile.ErrPhotoTooLarge),
		errors.Is(err, profile.ErrPhotoRequired),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordTooLong),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrResetTokenInvalid),
		errors.Is(err, auth.ErrUnknownPlan):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return fallback
	}
}

func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "home.html", s.page(r, "FloraFind"))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/plant/"+url.PathEscape(q), http.StatusSeeOther)
}

func (s *Server) handlePlant(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))

	prof, err := s.deps.Profiles.Aggregate(r.Context(), profile.AggregateInput{PlantName: name})
	if err != nil {
		s.log.WithError(err).WithField("plant", name).Warn("profile failed")
		s.renderError(w, r, statusFor(err, http.StatusBadGateway),
			"We could not build a profile for this plant right now. Please try again.")
		return
	}

	data := s.page(r, name)
	data.Plant = name
	data.Profile = &prof
	s.render(w, http.StatusOK, "plant.html", data)
}

func (s *Server) handlePlantImage(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PathValue("name"))

	img, err := s.deps.Profiles.GenerateImage(r.Context(), name)
	if err != nil {
		s.log.WithError(err).WithField("plant", name).Warn("image generation failed")
		http.Error(w, "image unavailable", statusFor(err, http.StatusBadGateway))
		return
	}
	media, err := profile.ParsePhoto(img.ImageURL)
	if err != nil {
		s.log.WithError(err).WithField("plant", name).Warn("generated image unreadable")
		http.Error(w, "image unavailable", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", media.MIMEType)
	w.Header().Set("Cache-Control", "private, max-age=86400")
	_, _ = w.Write(media.Data)
}

func (s *Server) handleScanPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "scan.html", s.page(r, "Scan a plant"))
}

func (s *Server) handleScanUpload(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Scan a plant")

	r.Body = http.MaxBytesReader(w, r.Body, profile.MaxPhotoBytes+1<<20)
	file, header, err := r.FormFile("photo")
	if err != nil {
		data.Error = "Choose a photo of the plant to identify."
		s.render(w, http.StatusBadRequest, "scan.html", data)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, profile.MaxPhotoBytes+1))
	if err != nil {
		data.Error = "The photo could not be read."
		s.render(w, http.StatusBadRequest, "scan.html", data)
		return
	}
	if len(raw) > profile.MaxPhotoBytes {
		data.Error = profile.ErrPhotoTooLarge.Error()
		s.render(w, http.StatusBadRequest, "scan.html", data)
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = http.DetectContentType(raw)
	}
	uri := profile.Media{MIMEType: mimeType, Data: raw}.DataURI()

	result, err := s.deps.Profiles.Scan(r.Context(), uri)
	if err != nil {
		s.log.WithError(err).Warn("scan failed")
		status := statusFor(err, http.StatusBadGateway)
		if status == http.StatusBadRequest {
			data.Error = err.Error()
		} else {
			data.Error = "We could not identify this plant right now. Please try again."
		}
		s.render(w, status, "scan.html", data)
		return
	}

	data.Scan = &result
	s.render(w, http.StatusOK, "scan.html", data)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Log in")
	data.Next = r.URL.Query().Get("next")
	if r.URL.Query().Get("reset") == "1" {
		data.Notice = "Your password has been reset. Log in with the new one."
	}
	s.render(w, http.StatusOK, "login.html", data)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	email, password := r.PostFormValue("email"), r.PostFormValue("password")
	next := r.PostFormValue("next")

	token, user, err := s.deps.Accounts.Login(r.Context(), email, password)
	if err != nil {
		data := s.page(r, "Log in")
		data.Email, data.Next = email, next
		data.Error = err.Error()
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.log.WithError(err).Error("login failed")
			data.Error = "Login is unavailable right now."
		}
		s.render(w, statusFor(err, http.StatusInternalServerError), "login.html", data)
		return
	}

	s.signIn(w, r, token, user)
	http.Redirect(w, r, safeNext(next), http.StatusSeeOther)
}

func (s *Server) handleSignupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "signup.html", s.page(r, "Create an account"))
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	email, password := r.PostFormValue("email"), r.PostFormValue("password")

	fail := func(err error) {
		data := s.page(r, "Create an account")
		data.Email = email
		status := statusFor(err, http.StatusInternalServerError)
		if status == http.StatusInternalServerError {
			s.log.WithError(err).Error("signup failed")
			data.Error = "Sign up is unavailable right now."
		} else {
			data.Error = err.Error()
		}
		s.render(w, status, "signup.html", data)
	}

	if password != r.PostFormValue("confirm") {
		data := s.page(r, "Create an account")
		data.Email = email
		data.Error = "Passwords do not match."
		s.render(w, http.StatusBadRequest, "signup.html", data)
		return
	}
	if _, err := s.deps.Accounts.Register(r.Context(), email, password); err != nil {
		fail(err)
		return
	}
	token, user, err := s.deps.Accounts.Login(r.Context(), email, password)
	if err != nil {
		fail(err)
		return
	}

	s.signIn(w, r, token, user)
	http.Redirect(w, r, "/subscribe", http.StatusSeeOther)
}

func (s *Server) signIn(w http.ResponseWriter, r *http.Request, token string, user *types.User) {
	s.setCookie(w, sessionCookie, token, s.deps.Accounts.SessionTTL())
	if err := auth.FromContext(r.Context()).SignIn(user); err != nil {
		s.log.WithError(err).Debug("session already signed in")
	}
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w, sessionCookie)
	if err := auth.FromContext(r.Context()).SignOut(); err != nil {
		s.log.WithError(err).Debug("logout without session")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleForgotPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "forgot.html", s.page(r, "Forgot password"))
}

func (s *Server) handleForgot(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	data := s.page(r, "Forgot password")
	data.Email = email

	if err := s.deps.Accounts.RequestPasswordReset(r.Context(), email); err != nil {
		status := statusFor(err, http.StatusInternalServerError)
		if status == http.StatusInternalServerError {
			s.log.WithError(err).Error("password reset request failed")
			data.Error = "We could not send the reset email. Please try again."
		} else {
			data.Error = err.Error()
		}
		s.render(w, status, "forgot.html", data)
		return
	}

	data.Notice = "If an account exists for that address, a reset link is on its way."
	s.render(w, http.StatusOK, "forgot.html", data)
}

func (s *Server) handleResetPage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Reset password")
	data.Token = r.URL.Query().Get("token")
	if data.Token == "" {
		data.Error = auth.ErrResetTokenInvalid.Error()
	}
	s.render(w, http.StatusOK, "reset.html", data)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	token, password := r.PostFormValue("token"), r.PostFormValue("password")

	if err := s.deps.Accounts.ResetPassword(r.Context(), token, password); err != nil {
		data := s.page(r, "Reset password")
		data.Token = token
		status := statusFor(err, http.StatusInternalServerError)
		if status == http.StatusInternalServerError {
			s.log.WithError(err).Error("password reset failed")
			data.Error = "Password reset is unavailable right now."
		} else {
			data.Error = err.Error()
		}
		s.render(w, status, "reset.html", data)
		return
	}
	http.Redirect(w, r, "/login?reset=1", http.StatusSeeOther)
}

func (s *Server) subscribePage(r *http.Request) *pageData {
	data := s.page(r, "Go Premium")
	data.Plans = types.Plans
	data.Features = types.PremiumFeatures
	data.TrialDays = types.TrialDays
	return data
}

func (s *Server) handleSubscribePage(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, "subscribe.html", s.subscribePage(r))
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	user := auth.FromContext(r.Context()).User()
	plan := types.PlanID(r.PostFormValue("plan"))

	if _, err := s.deps.Accounts.StartTrial(r.Context(), user.ID, plan); err != nil {
		data := s.subscribePage(r)
		status := statusFor(err, http.StatusInternalServerError)
		if status == http.StatusInternalServerError {
			s.log.WithError(err).Error("starting trial failed")
			data.Error = "We could not start your trial. Please try again."
		} else {
			data.Error = err.Error()
		}
		s.render(w, status, "subscribe.html", data)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleWelcomePage(w http.ResponseWriter, r *http.Request) {
	data := s.page(r, "Welcome")
	data.Steps = welcomeSteps
	s.render(w, http.StatusOK, "welcome.html", data)
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	s.setCookie(w, welcomeCookie, "1", 365*24*time.Hour)
	auth.FromContext(r.Context()).Welcomed = true
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
