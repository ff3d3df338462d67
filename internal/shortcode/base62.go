package shortcode

import "context"

// Base62Strategy encodes a record id as a salted base62 string. Given
// the same salt and length it is deterministic: the same id always
// produces the same code, and distinct ids never collide (the
// encoding is injective).
type Base62Strategy struct {
	Salt   int64
	Length int
}

// NewBase62Strategy builds a Base62Strategy. length is the maximum
// number of characters the encoded id may occupy.
func NewBase62Strategy(salt int64, length int) *Base62Strategy {
	return &Base62Strategy{Salt: salt, Length: length}
}

// Generate encodes id+Salt in base62, returning ErrCapacityExceeded if
// the result would not fit in Length characters.
func (s *Base62Strategy) Generate(_ context.Context, id int64) (string, error) {
	n := id + s.Salt
	if n < 0 {
		n = -n
	}

	if n == 0 {
		code := string(alphabet[0])
		if len(code) > s.Length {
			return "", ErrCapacityExceeded
		}
		return code, nil
	}

	buf := make([]byte, 0, s.Length+1)
	for n > 0 {
		buf = append(buf, alphabet[n%base])
		n /= base
	}
	// buf was built least-significant-digit first; reverse it.
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}

	if len(buf) > s.Length {
		return "", ErrCapacityExceeded
	}
	return string(buf), nil
}
