package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/maltedev/candidate-contact-scraper/internal/errlog"
	"github.com/maltedev/candidate-contact-scraper/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const profileURL = "https://www.example.com.br/candidatos/ana-souza-123"

func parsedProfile(name string) *models.ProfileData {
	p := models.NewProfileData("")
	p.Personal.Name = name
	return p
}

func phoneRecord(phone string) models.Result[models.ContactRecord] {
	return models.Ok(models.ContactRecord{Phone: &phone})
}

func newTestExtractor(contacts ContactSource, p *MockParser, h browser.Humanizer, errs *errlog.Log) *ProfileExtractor {
	cfg := DefaultProfileConfig()
	cfg.Errors = errs
	return NewProfileExtractor(cfg, contacts, p, h, nil)
}

func TestProfileExtractor_Extract(t *testing.T) {
	ctx := context.Background()

	t.Run("success merges contacts", func(t *testing.T) {
		page := &stubPage{latency: 120 * time.Millisecond, html: "<html>ok</html>"}
		contacts := new(MockContactSource)
		contacts.On("Extract", mock.Anything, page).Return(phoneRecord("(41) 99999-1234")).Once()
		p := new(MockParser)
		p.On("Parse", "<html>ok</html>").Return(parsedProfile("Ana Souza"), nil).Once()
		h := &countingHumanizer{}

		res := newTestExtractor(contacts, p, h, nil).Extract(ctx, page, profileURL)

		require.True(t, res.Success, res.Error)
		assert.Equal(t, profileURL, res.Data.URL)
		assert.Equal(t, "Ana Souza", res.Data.Personal.Name)
		require.NotNil(t, res.Data.Personal.Phone)
		assert.Equal(t, "(41) 99999-1234", *res.Data.Personal.Phone)
		assert.Nil(t, res.Data.Personal.Email)
		assert.Equal(t, int64(120), res.RequestTimeMs())
		assert.Equal(t, []time.Duration{2 * time.Second}, h.waits)
		assert.Equal(t, 1, h.simulations())
		contacts.AssertExpectations(t)
		p.AssertExpectations(t)
	})

	t.Run("invalid profile is still returned", func(t *testing.T) {
		page := &stubPage{html: "<html></html>"}
		contacts := new(MockContactSource)
		contacts.On("Extract", mock.Anything, page).Return(models.Ok(models.ContactRecord{}))
		p := new(MockParser)
		p.On("Parse", mock.Anything).Return(models.NewProfileData(""), nil)

		res := newTestExtractor(contacts, p, nil, nil).Extract(ctx, page, profileURL)

		require.True(t, res.Success)
		assert.False(t, res.Data.IsValid())
	})

	tests := []struct {
		name     string
		url      string
		page     *stubPage
		parseErr error
		code     models.ErrorCode
		parsed   bool
	}{
		{
			name: "navigation timeout",
			url:  profileURL,
			page: &stubPage{navErr: fmt.Errorf("%w after 30s", browser.ErrNavigationTimeout)},
			code: models.CodeNavigationTimeout,
		},
		{
			name: "blocked by anti-bot check",
			url:  profileURL,
			page: &stubPage{navErr: fmt.Errorf("%w: captcha iframe", browser.ErrBlocked)},
			code: models.CodeNavigationFailure,
		},
		{
			name: "navigation error",
			url:  profileURL,
			page: &stubPage{navErr: errors.New("net::ERR_NAME_NOT_RESOLVED")},
			code: models.CodeNavigationFailure,
		},
		{
			name: "invalid url",
			url:  "javascript:alert(1)",
			page: &stubPage{},
			code: models.CodeNavigationFailure,
		},
		{
			name: "content unavailable",
			url:  profileURL,
			page: &stubPage{htmlErr: errors.New("target closed")},
			code: models.CodeParseFailure,
		},
		{
			name:     "parse failure",
			url:      profileURL,
			page:     &stubPage{html: "<html></html>"},
			parseErr: errors.New("bad markup"),
			code:     models.CodeParseFailure,
			parsed:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contacts := new(MockContactSource)
			contacts.On("Extract", mock.Anything, mock.Anything).Return(models.Ok(models.ContactRecord{})).Maybe()
			p := new(MockParser)
			if tt.parsed {
				p.On("Parse", mock.Anything).Return(nil, tt.parseErr).Once()
			}
			errs := errlog.New(errlog.DefaultCapacity)

			res := newTestExtractor(contacts, p, nil, errs).Extract(ctx, tt.page, tt.url)

			assert.False(t, res.Success)
			assert.Nil(t, res.Data)
			assert.Equal(t, tt.code, res.Code)
			assert.NotEmpty(t, res.Error)

			entries := errs.Entries()
			require.Len(t, entries, 1)
			assert.Equal(t, string(tt.code), entries[0].Context["code"])
			assert.Equal(t, tt.url, entries[0].Context["url"])
			p.AssertExpectations(t)
		})
	}

	t.Run("navigation failure skips contact reveal", func(t *testing.T) {
		page := &stubPage{navErr: browser.ErrNavigationTimeout}
		contacts := new(MockContactSource)
		p := new(MockParser)

		res := newTestExtractor(contacts, p, nil, nil).Extract(ctx, page, profileURL)

		assert.False(t, res.Success)
		contacts.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
		p.AssertNotCalled(t, "Parse", mock.Anything)
	})

	t.Run("panic becomes unexpected exception", func(t *testing.T) {
		page := &stubPage{html: "<html></html>"}
		contacts := new(MockContactSource)
		contacts.On("Extract", mock.Anything, mock.Anything).Return(models.Ok(models.ContactRecord{}))
		p := new(MockParser)
		p.On("Parse", mock.Anything).Run(func(mock.Arguments) { panic("parser exploded") })
		errs := errlog.New(errlog.DefaultCapacity)

		var res models.Result[*models.ProfileData]
		require.NotPanics(t, func() {
			res = newTestExtractor(contacts, p, nil, errs).Extract(ctx, page, profileURL)
		})

		assert.False(t, res.Success)
		assert.Equal(t, models.CodeUnexpectedException, res.Code)
		assert.Contains(t, res.Error, "parser exploded")
		assert.Equal(t, 1, errs.Len())
	})
}

func TestProfileExtractor_ErrorsAreBounded(t *testing.T) {
	page := &stubPage{navErr: errors.New("connection refused")}
	e := newTestExtractor(new(MockContactSource), new(MockParser), nil, nil)

	for i := 0; i < 25; i++ {
		e.Extract(context.Background(), page, fmt.Sprintf("%s?p=%d", profileURL, i))
	}

	entries := e.Errors()
	require.Len(t, entries, errlog.DefaultCapacity)
	assert.Equal(t, profileURL+"?p=5", entries[0].Context["url"])
	assert.Equal(t, profileURL+"?p=24", entries[len(entries)-1].Context["url"])
}
