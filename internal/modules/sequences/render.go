package sequences

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/datatypes"

	types "github.com/yungbote/coachflow-backend/internal/domain"
	"github.com/yungbote/coachflow-backend/internal/pkg/dbctx"
)

func encodeVariables(vars map[string]any) (datatypes.JSON, error) {
	if len(vars) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(vars)
	if err != nil {
		return nil, fmt.Errorf("encode enrollment variables: %w", err)
	}
	return datatypes.JSON(b), nil
}

func decodeVariables(raw datatypes.JSON) map[string]any {
	out := map[string]any{}
	if len(raw) == 0 {
		return out
	}
	_ = json.Unmarshal(raw, &out)
	return out
}

// render resolves the step's subject and content. A template, when linked,
// wins over inline content.
func (u Usecases) render(ctx context.Context, step types.SequenceStep, client *types.User, e *types.ClientSequenceEnrollment) (string, string, error) {
	subject, content := step.Subject, step.Content
	if step.TemplateID != nil {
		tpl, err := u.deps.Sequences.GetTemplate(dbctx.Of(ctx), *step.TemplateID)
		if err != nil {
			return "", "", fmt.Errorf("load template: %w", err)
		}
		if tpl != nil && tpl.Active {
			content = tpl.Content
			if tpl.Subject != "" {
				subject = tpl.Subject
			}
		}
	}
	if strings.TrimSpace(content) == "" {
		return "", "", fmt.Errorf("step %d has no content", step.StepNumber)
	}
	vars := variables(client, e)
	return Substitute(subject, vars), Substitute(content, vars), nil
}

func variables(client *types.User, e *types.ClientSequenceEnrollment) map[string]string {
	out := map[string]string{}
	for k, v := range decodeVariables(e.Variables) {
		out[k] = fmt.Sprint(v)
	}
	if client != nil {
		out["firstName"] = client.FirstName()
		out["name"] = client.Name
		out["email"] = client.Email
	}
	return out
}

// Substitute replaces {key} placeholders. Unknown placeholders are left as is.
func Substitute(s string, vars map[string]string) string {
	if len(vars) == 0 || !strings.Contains(s, "{") {
		return s
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(s)
}
