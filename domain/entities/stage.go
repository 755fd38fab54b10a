package entities

// Stage represents a state of the interaction driver
type Stage string

const (
	StageInit               Stage = "init"
	StageIntentParsed       Stage = "intent_parsed"
	StageNavigated          Stage = "navigated"
	StageSearchBoxFound     Stage = "search_box_found"
	StageQuerySubmitted     Stage = "query_submitted"
	StageProductFound       Stage = "product_found"
	StageClicked            Stage = "clicked"
	StageTabResolved        Stage = "tab_resolved"
	StageAddToCartAttempted Stage = "add_to_cart_attempted"
	StageDone               Stage = "done"
)

// Status represents how a run ended
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNotFound  Status = "not_found"
	StatusFatal     Status = "fatal"
)

// Process exit codes
const (
	ExitOK            = 0
	ExitConfiguration = 1
	ExitIntentParse   = 2
	ExitNotFound      = 3
	ExitRuntime       = 4
	// ExitUsage is sysexits' EX_USAGE: bad arguments or flags
	ExitUsage         = 64
)

// Step names the operation a run was performing when it stopped
type Step string

const (
	StepParseIntent     Step = "parse_intent"
	StepNavigate        Step = "navigate"
	StepLocateSearchBox Step = "locate_search_box"
	StepSubmitQuery     Step = "submit_query"
	StepLocateProduct   Step = "locate_product"
	StepClickProduct    Step = "click_product"
	StepResolveTab      Step = "resolve_tab"
	StepLocateAddToCart Step = "locate_add_to_cart"
	StepClickAddToCart  Step = "click_add_to_cart"
)
