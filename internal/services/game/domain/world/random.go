package world

// Random is the world's deterministic random stream (xorshift32). Its state is
// part of durable state so replicas reproduce the same outcomes.
type Random struct {
	S uint32 `json:"s"`
}

func newRandom(seed uint32) Random {
	if seed == 0 {
		seed = 0x2545F491
	}
	return Random{S: seed}
}

// Next advances the stream and returns the new value.
func (r *Random) Next() uint32 {
	x := r.S
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.S = x
	return x
}
