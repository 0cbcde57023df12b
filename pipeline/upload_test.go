package pipeline

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseUploadDelimiters(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"comma", "price,gender,extra\n49.9,male,x\n10,female,y\n"},
		{"semicolon", "price;gender;extra\n49.9;male;x\n10;female;y\n"},
		{"tab", "price\tgender\textra\n49.9\tmale\tx\n10\tfemale\ty\n"},
		{"crlf with bom", "\ufeffprice,gender,extra\r\n49.9,male,x\r\n10,female,y\r\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload, err := ParseUpload(strings.NewReader(tt.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := strings.Join(upload.Columns, "|"); got != "price|gender|extra" {
				t.Fatalf("columns = %s", got)
			}
			if upload.Len() != 2 {
				t.Fatalf("expected 2 rows, got %d", upload.Len())
			}
			if upload.Records[0]["price"] != "49.9" || upload.Records[1]["gender"] != "female" {
				t.Fatalf("unexpected records: %v", upload.Records)
			}
		})
	}
}

func TestParseUploadEmpty(t *testing.T) {
	for _, input := range []string{"", "   \n"} {
		if _, err := ParseUpload(strings.NewReader(input)); !errors.Is(err, ErrEmptyUpload) {
			t.Fatalf("input %q: expected ErrEmptyUpload, got %v", input, err)
		}
	}
}

func TestParseUploadHeaderOnly(t *testing.T) {
	upload, err := ParseUpload(strings.NewReader("price,cost\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upload.Len() != 0 || len(upload.Columns) != 2 {
		t.Fatalf("unexpected upload: %+v", upload)
	}
}

func TestParseUploadRagged(t *testing.T) {
	if _, err := ParseUpload(strings.NewReader("a,b\n1,2\n3\n")); err == nil {
		t.Fatal("expected error for ragged row")
	}
}

func TestParseUploadDuplicateHeader(t *testing.T) {
	if _, err := ParseUpload(strings.NewReader("a,a\n1,2\n")); err == nil {
		t.Fatal("expected error for duplicate column")
	}
}

func TestWriteResults(t *testing.T) {
	upload, err := ParseUpload(strings.NewReader("price,gender\n10,male\n20,female\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var buf bytes.Buffer
	if err := WriteResults(&buf, upload, PredictedSalesColumn, []float64{1.5, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "price,gender,Predicted_Sales\n10,male,1.5\n20,female,2\n"
	if buf.String() != want {
		t.Fatalf("got %q, want %q", buf.String(), want)
	}

	if err := WriteResults(&buf, upload, PredictedSalesColumn, []float64{1}); err == nil {
		t.Fatal("expected length mismatch error")
	}
}
