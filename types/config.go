package types

import "time"

// Config is the chain-level configuration: owner, the
// protocol-designated bank and taxman contracts, the cronjob schedule, and
// upload/instantiate permission bits.
type Config struct {
	Owner       Address              `json:"owner"`
	Bank        Address              `json:"bank"`
	Taxman      Address              `json:"taxman"`
	Cronjobs    map[Address]Duration `json:"cronjobs"`
	Permissions Permissions          `json:"permissions"`
}

// Duration wraps time.Duration. It has no JSON methods of its own, so it
// encodes as a plain JSON number of nanoseconds.
type Duration time.Duration

// Permissions controls who may upload code / instantiate contracts.
type Permissions struct {
	Upload      Permission `json:"upload"`
	Instantiate Permission `json:"instantiate"`
}

// Permission is a closed set: anyone, nobody, or an explicit allow-list.
type Permission struct {
	Everybody bool      `json:"everybody,omitempty"`
	Nobody    bool      `json:"nobody,omitempty"`
	Somebodies []Address `json:"somebodies,omitempty"`
}

func (p Permission) Allows(addr Address) bool {
	if p.Everybody {
		return true
	}
	if p.Nobody {
		return false
	}
	for _, a := range p.Somebodies {
		if a == addr {
			return true
		}
	}
	return false
}

// CodeEntry is a garbage-collected code blob: content and a
// reference count.
type CodeEntry struct {
	Content  []byte `json:"content"`
	RefCount uint32 `json:"ref_count"`
}

// ContractInfo describes a deployed contract.
type ContractInfo struct {
	CodeHash  Hash256           `json:"code_hash"`
	Label     string            `json:"label,omitempty"`
	Admin     *Address          `json:"admin,omitempty"`
	AppConfig map[string]string `json:"app_config,omitempty"`
}
