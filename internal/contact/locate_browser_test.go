package contact

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/maltedev/candidate-contact-scraper/internal/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const taggedIDScript = `(sel) => {
	const el = document.querySelector(sel);
	return el ? el.id : '';
}`

func TestLocateTrigger_Browser(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test")
	}

	tests := []struct {
		name   string
		body   string
		wantID string
	}{
		{
			name:   "button inside wrapper div",
			body:   `<div id="wrapper" class="contato"><button id="control">Ver telefone</button></div>`,
			wantID: "control",
		},
		{
			name:   "link before plain text",
			body:   `<div id="card"><span id="label">Ver telefone</span><a id="link" href="#">Ver telefone</a></div>`,
			wantID: "link",
		},
		{
			name:   "innermost container without a control",
			body:   `<div id="outer"><div id="middle"><span id="inner">Visualizar telefone</span></div></div>`,
			wantID: "inner",
		},
		{
			name:   "role button nested in anchor",
			body:   `<a id="anchor" href="#"><span id="role" role="button">Mostrar Telefone</span></a>`,
			wantID: "role",
		},
	}

	b, err := browser.New(browser.DefaultOptions(), nil)
	require.NoError(t, err)
	defer b.Close()

	page, err := b.NewPage()
	require.NoError(t, err)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				_, _ = w.Write([]byte("<html><body>" + tt.body + "</body></html>"))
			}))
			defer srv.Close()

			ctx := context.Background()
			_, err := page.Navigate(ctx, srv.URL, 10*time.Second)
			require.NoError(t, err)

			r := NewRevealer(fastReveal(), nil)
			args := ResolveOptions(Phone).scriptArgs()

			selector, err := r.locateTrigger(ctx, page, args)
			require.NoError(t, err)

			id, err := page.Evaluate(ctx, taggedIDScript, selector)
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)

			// locating again must not leave two tagged elements behind
			_, err = r.locateTrigger(ctx, page, args)
			require.NoError(t, err)
			count, err := page.Evaluate(ctx, `(sel) => document.querySelectorAll(sel).length`, selector)
			require.NoError(t, err)
			assert.EqualValues(t, 1, count)
		})
	}
}
