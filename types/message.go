package types

// MessageKind tags the variant held by a Message.
type MessageKind string

const (
	MsgConfigure   MessageKind = "configure"
	MsgTransfer    MessageKind = "transfer"
	MsgUpload      MessageKind = "upload"
	MsgInstantiate MessageKind = "instantiate"
	MsgExecute     MessageKind = "execute"
	MsgMigrate     MessageKind = "migrate"
)

// Message is a tagged variant; exactly one of the pointer fields matching
// Kind is populated.
type Message struct {
	Kind        MessageKind      `json:"kind"`
	Configure   *ConfigureMsg    `json:"configure,omitempty"`
	Transfer    *TransferMsg     `json:"transfer,omitempty"`
	Upload      *UploadMsg       `json:"upload,omitempty"`
	Instantiate *InstantiateMsg  `json:"instantiate,omitempty"`
	Execute     *ExecuteMsg      `json:"execute,omitempty"`
	Migrate     *MigrateMsg      `json:"migrate,omitempty"`
}

// ConfigureMsg replaces chain config or app-config fields (owner-only).
type ConfigureMsg struct {
	NewConfig    *Config           `json:"new_config,omitempty"`
	NewAppConfig map[string]string `json:"new_app_config,omitempty"`
}

// TransferMsg moves coins from sender to one or more recipients.
type TransferMsg struct {
	Transfers []Transfer `json:"transfers"`
}

// Transfer is a single (recipient, coins) leg of a TransferMsg.
type Transfer struct {
	To    Address `json:"to"`
	Coins Coins   `json:"coins"`
}

// BankExecuteMsg is the payload the kernel sends to the protocol-designated
// bank contract's bank_execute entry point. It is
// never constructed by end users: From is always filled in by the kernel
// from the calling context (the tx sender for a top-level MsgTransfer, or
// the owning contract for a contract-initiated one), since bank_execute
// runs under SudoCtx, which -- unlike MutableCtx -- carries no Sender of
// its own (vm/context.go).
type BankExecuteMsg struct {
	From      Address    `json:"from"`
	Transfers []Transfer `json:"transfers"`
}

// UploadMsg registers WASM code by content hash.
type UploadMsg struct {
	Code []byte `json:"code"`
}

// InstantiateMsg deploys a contract; the derived address is
// H(sender || code_hash || salt).
type InstantiateMsg struct {
	CodeHash Hash256         `json:"code_hash"`
	Msg      []byte          `json:"msg"`
	Salt     []byte          `json:"salt"`
	Funds    Coins           `json:"funds"`
	Admin    *Address        `json:"admin,omitempty"`
	Label    string          `json:"label,omitempty"`
}

// ExecuteMsg invokes a contract's execute entry point with funds.
type ExecuteMsg struct {
	Contract Address `json:"contract"`
	Msg      []byte  `json:"msg"`
	Funds    Coins   `json:"funds"`
}

// MigrateMsg swaps a contract's code hash (admin-only).
type MigrateMsg struct {
	Contract    Address `json:"contract"`
	NewCodeHash Hash256 `json:"new_code_hash"`
	Msg         []byte  `json:"msg"`
}

// ReplyOn selects which submessage outcomes trigger the parent's reply
// entry point.
type ReplyOn string

const (
	ReplyNever   ReplyOn = "never"
	ReplySuccess ReplyOn = "success"
	ReplyError   ReplyOn = "error"
	ReplyAlways  ReplyOn = "always"
)

// SubMessage is a message a contract asks the kernel to execute after its
// current call returns, whose outcome may be delivered back via reply.
type SubMessage struct {
	Msg     Message `json:"msg"`
	ReplyOn ReplyOn `json:"reply_on"`
	Payload []byte  `json:"payload,omitempty"`
}

// Response is what every mutable/sudo entry point returns.
type Response struct {
	Events   []map[string]interface{} `json:"events,omitempty"`
	Messages []SubMessage              `json:"messages,omitempty"`
	Data     []byte                    `json:"data,omitempty"`
}

// AuthResponse is authenticate's structured return value.
type AuthResponse struct {
	RequestBackrun bool `json:"request_backrun"`
}
