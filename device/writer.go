package device

import "github.com/ardnew/picoreset/pkg"

// DescriptorWriter appends class descriptors to a caller-provided buffer while
// the device assembles its configuration descriptor.
//
// Every write is all-or-nothing: when the remaining space cannot hold a
// descriptor, the writer returns [pkg.ErrBufferTooSmall] and leaves the
// buffer and its position untouched.
type DescriptorWriter struct {
	buf           []byte
	pos           int
	numInterfaces uint8
}

// NewDescriptorWriter returns a writer that fills buf from its start.
func NewDescriptorWriter(buf []byte) *DescriptorWriter {
	return &DescriptorWriter{buf: buf}
}

// Reset rewinds the writer to the start of its buffer.
func (w *DescriptorWriter) Reset() {
	w.pos = 0
	w.numInterfaces = 0
}

// Write appends a raw descriptor of the given type with body as its payload.
// bLength and bDescriptorType are filled in by the writer.
func (w *DescriptorWriter) Write(descType uint8, body ...byte) error {
	length := 2 + len(body)
	if length > maxDescriptorSize {
		return pkg.ErrInvalidParameter
	}
	if len(w.buf)-w.pos < length {
		return pkg.ErrBufferTooSmall
	}
	w.buf[w.pos] = uint8(length)
	w.buf[w.pos+1] = descType
	copy(w.buf[w.pos+2:], body)
	w.pos += length
	return nil
}

// Interface appends an interface descriptor for alternate setting 0 with no
// endpoints and no string.
func (w *DescriptorWriter) Interface(num InterfaceNumber, class, subClass, protocol uint8) error {
	return w.InterfaceAlt(num, 0, class, subClass, protocol, 0)
}

// InterfaceAlt appends an interface descriptor for the given alternate
// setting. Only alternate setting 0 counts towards bNumInterfaces.
func (w *DescriptorWriter) InterfaceAlt(num InterfaceNumber, alt, class, subClass, protocol, stringIndex uint8) error {
	desc := InterfaceDescriptor{
		Length:            InterfaceDescriptorSize,
		DescriptorType:    DescriptorTypeInterface,
		InterfaceNumber:   uint8(num),
		AlternateSetting:  alt,
		InterfaceClass:    class,
		InterfaceSubClass: subClass,
		InterfaceProtocol: protocol,
		InterfaceIndex:    stringIndex,
	}
	n := desc.MarshalTo(w.buf[w.pos:])
	if n == 0 {
		return pkg.ErrBufferTooSmall
	}
	w.pos += n
	if alt == 0 {
		w.numInterfaces++
	}
	return nil
}

// Bytes returns the descriptors written so far.
// The returned slice references the writer's buffer.
func (w *DescriptorWriter) Bytes() []byte {
	return w.buf[:w.pos]
}

// Len returns the number of bytes written.
func (w *DescriptorWriter) Len() int {
	return w.pos
}

// NumInterfaces returns the number of distinct interfaces written.
func (w *DescriptorWriter) NumInterfaces() uint8 {
	return w.numInterfaces
}
