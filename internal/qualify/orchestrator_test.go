package qualify

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestDecodeOutputAcceptsTypedAndJSONResults(t *testing.T) {
	typed := DepartmentOutput{Department: "audio", Notes: "clean mix"}
	out, err := decodeOutput(typed)
	if err != nil || out.Department != "audio" {
		t.Fatalf("typed decode = %+v, %v", out, err)
	}

	out, err = decodeOutput(&typed)
	if err != nil || out.Notes != "clean mix" {
		t.Fatalf("pointer decode = %+v, %v", out, err)
	}

	raw := json.RawMessage(`{"department":"video","qualified":[{"department":"video","score":0.7}]}`)
	out, err = decodeOutput(raw)
	if err != nil {
		t.Fatalf("json decode: %v", err)
	}
	if out.Department != "video" || len(out.Qualified) != 1 || out.Qualified[0].Score != 0.7 {
		t.Fatalf("json decode = %+v", out)
	}

	out, err = decodeOutput([]byte(`{"department":"story"}`))
	if err != nil || out.Department != "story" {
		t.Fatalf("bytes decode = %+v, %v", out, err)
	}

	out, err = decodeOutput(nil)
	if err != nil || out == nil || len(out.Qualified) != 0 {
		t.Fatalf("nil decode = %+v, %v", out, err)
	}

	var nilOut *DepartmentOutput
	out, err = decodeOutput(nilOut)
	if err != nil || out == nil {
		t.Fatalf("nil pointer decode = %+v, %v", out, err)
	}
}

func TestDecodeOutputRejectsUnknownTypes(t *testing.T) {
	if _, err := decodeOutput(42); err == nil {
		t.Fatal("expected error for int result")
	}
	if _, err := decodeOutput([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed json")
	}
}

func TestPhaseErrorEnumeratesEveryFailure(t *testing.T) {
	cause1 := errors.New("schema mismatch")
	cause2 := errors.New("reference loop")
	err := &PhaseError{
		Phase: "production",
		Failures: []DepartmentFailure{
			{Department: "image_quality", Err: cause1},
			{Department: "video", Err: cause2},
		},
	}

	msg := err.Error()
	for _, fragment := range []string{"production", "2 department(s)", "image_quality: schema mismatch", "video: reference loop"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("message %q missing %q", msg, fragment)
		}
	}
	if !errors.Is(err, cause1) || !errors.Is(err, cause2) {
		t.Fatal("PhaseError must unwrap to every department cause")
	}

	deps := err.Departments()
	if len(deps) != 2 || deps[0] != "image_quality" || deps[1] != "video" {
		t.Fatalf("departments = %v", deps)
	}
}

func TestPersistErrorNamesDepartment(t *testing.T) {
	cause := errors.New("insert rejected")
	err := &PersistError{Department: "world", Err: cause}
	if !strings.Contains(err.Error(), "world") {
		t.Fatalf("message %q missing department", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Fatal("PersistError must unwrap its cause")
	}
}
