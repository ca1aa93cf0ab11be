package introspect

import (
	"github.com/arnac-io/multisig/pkg/core"
	"github.com/arnac-io/multisig/pkg/i18n"
)

// TitleKey is the message id of a call title.
type TitleKey string

const (
	TitleTransfer        TitleKey = "titleTransfer"
	TitleOrmlTransfer    TitleKey = "titleOrmlTransfer"
	TitleAssetTransfer   TitleKey = "titleAssetTransfer"
	TitleXcmTransfer     TitleKey = "titleXcmTransfer"
	TitleBatch           TitleKey = "titleBatch"
	TitleProxy           TitleKey = "titleProxy"
	TitleAsMulti         TitleKey = "titleAsMulti"
	TitleApproveAsMulti  TitleKey = "titleApproveAsMulti"
	TitleCancelAsMulti   TitleKey = "titleCancelAsMulti"
	TitleBond            TitleKey = "titleBond"
	TitleNominate        TitleKey = "titleNominate"
	TitleUnstake         TitleKey = "titleUnstake"
	TitleRestake         TitleKey = "titleRestake"
	TitleStakeMore       TitleKey = "titleStakeMore"
	TitleRedeem          TitleKey = "titleRedeem"
	TitleChill           TitleKey = "titleChill"
	TitleDestination     TitleKey = "titleDestination"
	TitleAddProxy        TitleKey = "titleAddProxy"
	TitleRemoveProxy     TitleKey = "titleRemoveProxy"
	TitleCreatePureProxy TitleKey = "titleCreatePureProxy"
	TitleRemovePureProxy TitleKey = "titleRemovePureProxy"
	TitleUnknown         TitleKey = "titleUnknown"
)

// CallTitle identifies how a call is shown. Section and Method are set for
// unknown calls only.
type CallTitle struct {
	Key     TitleKey
	Section string
	Method  string
}

// Title returns the title of the forwarded call for proxies and of the first
// child with a known title for batches. A batch of unknown calls is a batch.
func Title(call core.CallTree) CallTitle {
	return title(call, 1)
}

func title(call core.CallTree, depth int) CallTitle {
	if depth > core.MaxCallDepth {
		return CallTitle{Key: TitleUnknown}
	}
	switch args := call.Args.(type) {
	case core.ProxyArgs:
		return title(args.Transaction, depth+1)
	case core.BatchArgs:
		for _, child := range args.Transactions {
			if t := title(child, depth+1); t.Key != TitleUnknown {
				return t
			}
		}
		return CallTitle{Key: TitleBatch}
	}
	f := nodeFacts(call)
	return CallTitle{Key: f.title, Section: f.section, Method: f.method}
}

// Label renders t for lang, e.g. "Unknown democracy: vote".
func (t CallTitle) Label(lang string) string {
	section, method := t.Section, t.Method
	if section == "" {
		section = "call"
	}
	if method == "" {
		method = "unknown"
	}
	return i18n.T(lang, i18n.C{
		MessageID:    string(t.Key),
		TemplateData: map[string]interface{}{"Section": section, "Method": method},
	})
}
