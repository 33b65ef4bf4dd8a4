package i18n

import (
	"context"
	"testing"
)

func initLang(t *testing.T, lang string) context.Context {
	t.Helper()
	if err := Init(lang); err != nil {
		t.Fatalf("Init(%q): %v", lang, err)
	}
	return WithLang(context.Background(), lang)
}

func TestTranslateEnglish(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "RegistrationSuccessful")
	if got != "Registration successful!" {
		t.Errorf("T(RegistrationSuccessful) = %q, want 'Registration successful!'", got)
	}

	got = T(ctx, "NoQuestions")
	if got != "No questions available for this exam!" {
		t.Errorf("T(NoQuestions) = %q", got)
	}
}

func TestTranslateRussian(t *testing.T) {
	ctx := initLang(t, "ru")

	got := T(ctx, "RegistrationSuccessful")
	if got != "Регистрация прошла успешно!" {
		t.Errorf("T(RegistrationSuccessful) = %q, want 'Регистрация прошла успешно!'", got)
	}
}

func TestDefaultLanguageFromInit(t *testing.T) {
	if err := Init("ru"); err != nil {
		t.Fatalf("Init: %v", err)
	}
	// No localizer in the context: the Init language is used.
	got := T(context.Background(), "InvalidRegistration")
	if got != "Неверный регистрационный номер или экзамен!" {
		t.Errorf("T(InvalidRegistration) = %q", got)
	}
}

func TestPluralTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got1 := Tp(ctx, "QuestionsAllocated", 1)
	if got1 != "Questions allocated to 1 student!" {
		t.Errorf("Tp(QuestionsAllocated, 1) = %q", got1)
	}

	got5 := Tp(ctx, "QuestionsAllocated", 5)
	if got5 != "Questions allocated to 5 students!" {
		t.Errorf("Tp(QuestionsAllocated, 5) = %q", got5)
	}
}

func TestRussianPlurals(t *testing.T) {
	ctx := initLang(t, "ru")

	tests := []struct {
		count int
		want  string
	}{
		{1, "Импортирован 1 вопрос."},
		{3, "Импортировано 3 вопроса."},
		{7, "Импортировано 7 вопросов."},
	}
	for _, tt := range tests {
		if got := Tp(ctx, "QuestionsImported", tt.count); got != tt.want {
			t.Errorf("Tp(QuestionsImported, %d) = %q, want %q", tt.count, got, tt.want)
		}
	}
}

func TestPluralWithTemplateData(t *testing.T) {
	ctx := initLang(t, "en")

	got := Tpd(ctx, "ExamCreated", 10, map[string]any{"Name": "Networks"})
	if got != `Exam "Networks" created with 10 students!` {
		t.Errorf("Tpd(ExamCreated) = %q", got)
	}
}

func TestTemplateDataTranslation(t *testing.T) {
	ctx := initLang(t, "en")

	got := Td(ctx, "DuplicateQuestionNumber", map[string]any{"Number": 4})
	if got != "Question number 4 already exists for this exam!" {
		t.Errorf("Td(DuplicateQuestionNumber) = %q", got)
	}
}

func TestMissingKey(t *testing.T) {
	ctx := initLang(t, "en")

	got := T(ctx, "NonExistentKey")
	if got != "NonExistentKey" {
		t.Errorf("T(NonExistentKey) = %q, want 'NonExistentKey'", got)
	}
}

func TestInitInvalidLanguage(t *testing.T) {
	if err := Init("not a language!"); err == nil {
		t.Error("expected error for invalid language tag")
	}
}
