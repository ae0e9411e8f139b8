package gmath

// Concrete aliases for every required width and signedness.
type (
	Uint64  = Int[U64]
	Uint128 = Int[U128]
	Uint256 = Int[U256]
	Uint512 = Int[U512]
	Int64_  = Int[I64]
	Int128  = Int[I128]
	Int256  = Int[I256]
	Int512  = Int[I512]
)

// NextU64/.../NextI256 implement the lossless promotion chain
// u64->u128->u256->u512 (and signed equivalent). Go
// methods cannot introduce their own type parameters, so Next is exposed as
// free functions rather than a generic method on Int[W].
func NextU64(x Uint64) Uint128   { return Int[U128]{v: x.BigInt()} }
func NextU128(x Uint128) Uint256 { return Int[U256]{v: x.BigInt()} }
func NextU256(x Uint256) Uint512 { return Int[U512]{v: x.BigInt()} }

func NextI64(x Int64_) Int128  { return Int[I128]{v: x.BigInt()} }
func NextI128(x Int128) Int256 { return Int[I256]{v: x.BigInt()} }
func NextI256(x Int256) Int512 { return Int[I512]{v: x.BigInt()} }

// DemoteU128/.../DemoteI512 implement checked demotion: the inverse of
// Next, failing if the value does not fit in the narrower width.
func DemoteU128(x Uint128) (Uint64, error) { return CheckedFromBigInt[U64](x.BigInt()) }
func DemoteU256(x Uint256) (Uint128, error) { return CheckedFromBigInt[U128](x.BigInt()) }
func DemoteU512(x Uint512) (Uint256, error) { return CheckedFromBigInt[U256](x.BigInt()) }

func DemoteI128(x Int128) (Int64_, error) { return CheckedFromBigInt[I64](x.BigInt()) }
func DemoteI256(x Int256) (Int128, error) { return CheckedFromBigInt[I128](x.BigInt()) }
func DemoteI512(x Int512) (Int256, error) { return CheckedFromBigInt[I256](x.BigInt()) }
