package extract

import (
	"strings"
	"unicode"

	"github.com/tether-analysis/tether/pkg/modpath"
)

// StopList filters out targets that would otherwise produce false-positive
// couplings. The filters are fixed per run so repeated runs over the same
// input emit the same usages.
type StopList struct {
	names map[string]bool
}

// stdVocabulary is the well-known built-in and generic vocabulary of the
// analyzed language: primitives, prelude types and traits, and the std crate
// roots. References to these say nothing about project structure.
var stdVocabulary = []string{
	// Crate roots
	"std", "core", "alloc",
	// Primitives
	"bool", "char", "str",
	"u8", "u16", "u32", "u64", "u128", "usize",
	"i8", "i16", "i32", "i64", "i128", "isize",
	"f32", "f64",
	// Prelude types
	"Option", "Some", "None", "Result", "Ok", "Err",
	"Vec", "String", "Box", "Rc", "Arc", "Cow",
	"Cell", "RefCell", "Mutex", "RwLock", "PhantomData",
	"HashMap", "HashSet", "BTreeMap", "BTreeSet", "VecDeque",
	// Prelude traits
	"Clone", "Copy", "Debug", "Display", "Default", "Drop",
	"Send", "Sync", "Sized", "Unpin",
	"PartialEq", "Eq", "PartialOrd", "Ord", "Hash",
	"From", "Into", "TryFrom", "TryInto", "AsRef", "AsMut",
	"Deref", "DerefMut", "Iterator", "IntoIterator", "Extend",
	"Fn", "FnMut", "FnOnce", "ToString", "ToOwned",
	"Self",
}

// DefaultStopList builds the standard stop-list.
func DefaultStopList() *StopList {
	s := &StopList{names: make(map[string]bool, len(stdVocabulary))}
	for _, name := range stdVocabulary {
		s.names[name] = true
	}
	return s
}

// NewStopList builds a stop-list from explicit names.
func NewStopList(names []string) *StopList {
	s := &StopList{names: make(map[string]bool, len(names))}
	for _, name := range names {
		s.names[name] = true
	}
	return s
}

// Contains reports whether name is on the stop-list.
func (s *StopList) Contains(name string) bool {
	return s.names[name]
}

// ShouldEmit applies the false-positive filters to a raw target path:
//
//  1. targets rooted in the standard vocabulary are dropped,
//  2. trivial self-references (T::T, foo::foo) are dropped,
//  3. bare lowercase identifiers are indistinguishable from local bindings
//     and dropped.
func (s *StopList) ShouldEmit(target string) bool {
	if target == "" {
		return false
	}
	p := modpath.Parse(target)
	if p.IsZero() {
		return false
	}
	segs := p.Segments()

	if s.names[segs[0]] {
		return false
	}

	if len(segs) >= 2 && segs[len(segs)-2] == segs[len(segs)-1] {
		return false
	}

	if len(segs) == 1 && !strings.ContainsRune(target, ':') {
		r := []rune(segs[0])[0]
		if unicode.IsLower(r) || r == '_' {
			return false
		}
	}
	return true
}
