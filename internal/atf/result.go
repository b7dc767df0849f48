package atf

import (
	"os"
	"strings"

	"github.com/kyua-go/kyua/internal/errdefs"
	"github.com/kyua-go/kyua/internal/model"
)

// ParseResultFile reads the single-line result file an ATF test case leaves
// in the control directory. The grammar is "<kind>[: <reason>]" with an
// optional trailing newline; passed forbids a reason and every other kind
// requires one. Violations come back as FormatError values whose message is
// the human-readable detail.
func ParseResultFile(path string) (model.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Result{}, err
	}
	return parseResult(string(data))
}

func parseResult(raw string) (model.Result, error) {
	text := strings.TrimSuffix(raw, "\n")
	text = strings.TrimSuffix(text, "\r")
	if text == "" {
		return model.Result{}, errdefs.Format("empty result file")
	}
	if strings.ContainsAny(text, "\n\r") {
		return model.Result{}, errdefs.Format("result file has more than one line")
	}

	kind, reason, hasReason := strings.Cut(text, ": ")
	if !hasReason && strings.Contains(text, ":") {
		return model.Result{}, errdefs.Format("invalid result line '%s'", text)
	}
	if !model.ValidResultKind(kind) {
		return model.Result{}, errdefs.Format("unknown result kind '%s'", kind)
	}

	rk := model.ResultKind(kind)
	if rk == model.ResultPassed {
		if hasReason {
			return model.Result{}, errdefs.Format("passed results cannot carry a reason")
		}
		return model.Passed(), nil
	}
	if !hasReason || reason == "" {
		return model.Result{}, errdefs.Format("results of kind '%s' require a reason", kind)
	}
	return model.Result{Kind: rk, Reason: reason}, nil
}
