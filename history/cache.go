package history

// reductionCache memoizes windowed-reduction results for the lifetime of
// one View (i.e. one instruction call): a repeated max_commission or
// max_mev_commission query over the same window returns the stored
// result instead of rescanning the ring buffer. The cache is never
// shared across instruction calls — a View is constructed fresh each
// time so appended entries are always visible.
type reductionCache struct {
	maxCommission    map[[2]uint16]cachedU8
	maxMEVCommission map[[2]uint16]cachedU16
}

type cachedU8 struct {
	val uint8
	err error
}

type cachedU16 struct {
	val uint16
	err error
}

func (c *reductionCache) maxCommissionGet(t1, t2 uint16) (uint8, error, bool) {
	if c.maxCommission == nil {
		return 0, nil, false
	}
	v, ok := c.maxCommission[[2]uint16{t1, t2}]
	return v.val, v.err, ok
}

func (c *reductionCache) maxCommissionPut(t1, t2 uint16, val uint8, err error) {
	if c.maxCommission == nil {
		c.maxCommission = make(map[[2]uint16]cachedU8)
	}
	c.maxCommission[[2]uint16{t1, t2}] = cachedU8{val: val, err: err}
}

func (c *reductionCache) maxMEVCommissionGet(t1, t2 uint16) (uint16, error, bool) {
	if c.maxMEVCommission == nil {
		return 0, nil, false
	}
	v, ok := c.maxMEVCommission[[2]uint16{t1, t2}]
	return v.val, v.err, ok
}

func (c *reductionCache) maxMEVCommissionPut(t1, t2 uint16, val uint16, err error) {
	if c.maxMEVCommission == nil {
		c.maxMEVCommission = make(map[[2]uint16]cachedU16)
	}
	c.maxMEVCommission[[2]uint16{t1, t2}] = cachedU16{val: val, err: err}
}
