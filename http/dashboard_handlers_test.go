package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func postForm(env *testEnv, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return env.do(req)
}

func TestIndexPage(t *testing.T) {
	env := newTestEnv(t, false, true)
	rr := env.do(httptest.NewRequest("GET", "/", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{"Dynamic Pricing - Sales Prediction", `value="450"`, "Scatter Plot", "Bar Chart (20 Samples)"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Error("security headers not applied")
	}

	rr = env.do(httptest.NewRequest("GET", "/missing", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestPredictForm(t *testing.T) {
	env := newTestEnv(t, false, true)
	form := url.Values{
		"price": {"100"}, "cost": {"60"},
		"gender": {"female"}, "category": {"shoes"}, "brand": {"brand_3"},
		"collection": {"P"}, "price_tier": {"low"}, "style": {"casual"},
	}
	rr := postForm(env, "/predict", form)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "200.00 units") {
		t.Fatalf("prediction not rendered")
	}

	form.Set("category", "hats")
	rr = postForm(env, "/predict", form)
	if !strings.Contains(rr.Body.String(), "not recognised") {
		t.Fatalf("expected unrecognised warning")
	}

	for _, bad := range []string{"lots", "NaN", "Inf"} {
		form.Set("price", bad)
		rr = postForm(env, "/predict", form)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("price %q: expected 400, got %d", bad, rr.Code)
		}
	}
}

func TestUploadForm(t *testing.T) {
	env := newTestEnv(t, false, true)
	body, contentType := multipartUpload(t, "products.csv", uploadCSV)
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := env.do(req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	page := rr.Body.String()
	if !strings.Contains(page, "Predicted_Sales") || !strings.Contains(page, "<svg") {
		t.Fatalf("results table or chart missing")
	}

	body, contentType = multipartUpload(t, "bad.csv", "price\nabc\n")
	req = httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr = env.do(req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
}

func TestEvaluationPage(t *testing.T) {
	env := newTestEnv(t, false, true)
	for _, chart := range []string{"none", "scatter", "bar"} {
		rr := env.do(httptest.NewRequest("GET", "/evaluation?chart="+chart, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("chart %s: expected 200, got %d", chart, rr.Code)
		}
		hasChart := strings.Contains(rr.Body.String(), "<svg")
		if hasChart != (chart != "none") {
			t.Errorf("chart %s: svg rendered = %v", chart, hasChart)
		}
	}
}

func TestAttributeLabel(t *testing.T) {
	if got := attributeLabel("price_tier"); got != "Price Tier" {
		t.Fatalf("got %q", got)
	}
}
