package serialio

import "bytes"

// lineBuffer accumulates raw reads and hands out complete newline-terminated
// lines. Carriage returns are stripped, so both \n and \r\n framing work.
type lineBuffer struct {
	buf []byte
}

func (lb *lineBuffer) feed(p []byte) {
	lb.buf = append(lb.buf, p...)
}

// next pops the first complete line, without its terminator. ok is false
// when no full line has arrived yet.
func (lb *lineBuffer) next() (line string, ok bool) {
	idx := bytes.IndexByte(lb.buf, '\n')
	if idx < 0 {
		return "", false
	}
	raw := lb.buf[:idx]
	lb.buf = lb.buf[idx+1:]
	return string(bytes.TrimRight(raw, "\r")), true
}
