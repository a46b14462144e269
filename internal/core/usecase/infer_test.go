package usecase

import (
	"context"
	"fmt"
	"testing"
)

const contractText = `ПОРУЧЕНИЕ
Принципал: Альфатрекс
Номер поручения: 54
Дата: 28.05.2025`

func TestInferFromDocumentText(t *testing.T) {
	uc := NewInferIdentityUseCase(&fakeExtractor{text: contractText})

	identity := uc.Infer(context.Background(), "key", "scan0001.pdf")
	if identity == nil {
		t.Fatal("expected an inferred identity")
	}
	if identity.Principal != "Альфатрекс" {
		t.Errorf("principal: got %q", identity.Principal)
	}
	if identity.Doctype != "поручение" {
		t.Errorf("doctype: got %q", identity.Doctype)
	}
	if identity.Number != "54" {
		t.Errorf("number: got %q", identity.Number)
	}
	if identity.Date != "28052025" {
		t.Errorf("date: got %q", identity.Date)
	}
	if identity.Ext != "pdf" {
		t.Errorf("ext: got %q", identity.Ext)
	}
}

func TestInferPartialFieldsIsAMiss(t *testing.T) {
	texts := []string{
		"Принципал: Альфатрекс\nНомер поручения: 54",
		"поручение от 28.05.2025",
		"",
	}
	for _, text := range texts {
		uc := NewInferIdentityUseCase(&fakeExtractor{text: text})
		if identity := uc.Infer(context.Background(), "key", "scan.pdf"); identity != nil {
			t.Errorf("text %q: expected a miss, got %+v", text, identity)
		}
	}
}

func TestInferExtractionFailureIsAMiss(t *testing.T) {
	uc := NewInferIdentityUseCase(&fakeExtractor{err: fmt.Errorf("broken file")})
	if identity := uc.Infer(context.Background(), "key", "scan.pdf"); identity != nil {
		t.Fatalf("extraction failure must be a miss, got %+v", identity)
	}
}

func TestInferUnsupportedExtensionIsAMiss(t *testing.T) {
	uc := NewInferIdentityUseCase(&fakeExtractor{text: contractText})
	if identity := uc.Infer(context.Background(), "key", "scan.zip"); identity != nil {
		t.Fatalf("unsupported extension must fail identity validation, got %+v", identity)
	}
}
