package store

import (
	"sync"

	"github.com/dw/acid/pkg/keycodec"
	"github.com/dw/acid/pkg/valuecodec"
)

// named is satisfied by both valuecodec.Encoder and valuecodec.Packer;
// the registry only needs a stable name to assign and persist a prefix
// byte against.
type named interface {
	Name() string
}

// registry implements the encoder registry (C3): it assigns a one-byte
// numeric prefix to every value encoder and packer on first use and
// persists the name/prefix mapping in the store's reserved "encoders"
// metadata collection, so a later Open of the same store resolves the
// same byte back to the same name.
type registry struct {
	mu          sync.Mutex
	store       *Store
	byName      map[string]byte
	encByPrefix map[byte]valuecodec.Encoder
	pckByPrefix map[byte]valuecodec.Packer
	next        byte
}

const (
	encoderPrefixMin = 1
	encoderPrefixMax = 240
)

func newRegistry(s *Store) *registry {
	return &registry{
		store:       s,
		byName:      map[string]byte{},
		encByPrefix: map[byte]valuecodec.Encoder{},
		pckByPrefix: map[byte]valuecodec.Packer{},
		next:        encoderPrefixMin,
	}
}

// loadPersisted replays the persisted name->prefix mapping from the
// encoders metadata collection (idx metaEncoders) so that byName and next
// reflect prior registrations before any new encoder is added in this
// process.
func (r *registry) loadPersisted() error {
	prefix := r.store.physPrefix(metaEncoders)
	it := r.store.eng.Iterate(prefix, false)
	defer it.Close()
	for it.Next() {
		keys, ok := keycodec.UnpackPrefixed(prefix, it.Key())
		if !ok {
			break
		}
		if len(keys) != 1 || len(keys[0]) != 1 || keys[0][0].Kind != keycodec.KindText {
			continue
		}
		name := keys[0][0].Text
		b, _ := keycodec.ReadUvarint(it.Value())
		r.byName[name] = byte(b)
		if byte(b) >= r.next {
			r.next = byte(b) + 1
		}
	}
	return nil
}

func (r *registry) persist(name string, prefix byte) error {
	key := r.store.physKey(metaEncoders, keycodec.Key{keycodec.Text(name)})
	return r.store.eng.Put(key, keycodec.AppendUvarint(nil, uint64(prefix)))
}

// add assigns n's name a prefix byte, persisting the mapping on first use.
// Re-adding an already-registered name returns the existing prefix
// (idempotent) and also re-registers the live instance in this process so
// a fresh Go process can resolve prefixes loaded from disk.
func (r *registry) add(n named) (byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	b, known := r.byName[name]
	if !known {
		if r.next > encoderPrefixMax {
			return 0, &AssignmentOutOfRangeError{Attempted: int(r.next)}
		}
		b = r.next
		r.next++
		r.byName[name] = b
		if err := r.persist(name, b); err != nil {
			return 0, err
		}
	}
	switch e := n.(type) {
	case valuecodec.Encoder:
		r.encByPrefix[b] = e
	case valuecodec.Packer:
		r.pckByPrefix[b] = e
	}
	return b, nil
}

func (r *registry) lookupEncoder(prefix byte) (valuecodec.Encoder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.encByPrefix[prefix]
	if !ok {
		return nil, &UnknownEncoderError{Prefix: prefix, Name: r.nameForLocked(prefix)}
	}
	return e, nil
}

func (r *registry) lookupPacker(prefix byte) (valuecodec.Packer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pckByPrefix[prefix]
	if !ok {
		return nil, &UnknownEncoderError{Prefix: prefix, Name: r.nameForLocked(prefix)}
	}
	return p, nil
}

func (r *registry) nameForLocked(prefix byte) string {
	for name, b := range r.byName {
		if b == prefix {
			return name
		}
	}
	return ""
}

func (r *registry) bootstrapBuiltins() error {
	if err := r.loadPersisted(); err != nil {
		return err
	}
	for _, e := range []valuecodec.Encoder{
		valuecodec.KeyEncoder{},
		valuecodec.CBOREncoder{},
	} {
		if _, err := r.add(e); err != nil {
			return err
		}
	}
	for _, p := range []valuecodec.Packer{
		valuecodec.PlainPacker{},
		valuecodec.DeflatePacker{},
	} {
		if _, err := r.add(p); err != nil {
			return err
		}
	}
	return nil
}
