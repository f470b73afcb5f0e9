// Package server provides the jonesy language server: parse and semantic
// diagnostics, completion, hover and label navigation over LSP.
package server

import (
	"fmt"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/chazu/jonesy/vm"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "jonesy-lsp"

// LspServer serves editor features for jonesy assembly documents.
type LspServer struct {
	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a new LSP server.
func NewLSP() *LspServer {
	s := &LspServer{
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	commonlog.NewInfoMessage(0, "Jonesy LSP initializing")

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}

	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			text := whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}

	return complete(text, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	return hover(text, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	line, col, ok := labelDefinition(text, word)
	if !ok {
		return nil, nil
	}

	return []protocol.Location{{
		URI:   params.TextDocument.URI,
		Range: lineRange(line, col, col+len(word)),
	}}, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}

	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}

	var locations []protocol.Location
	for _, ref := range labelReferences(text, word) {
		locations = append(locations, protocol.Location{
			URI:   params.TextDocument.URI,
			Range: lineRange(ref.line, ref.col, ref.col+len(word)),
		})
	}
	return locations, nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Analysis ---

// analysis is the result of checking one document: the parsed program, the
// 0-based source line of every instruction, and any diagnostics.
type analysis struct {
	program     []vm.Instruction
	lines       []int
	diagnostics []protocol.Diagnostic
}

// analyze parses every line of the document (so all parse errors surface at
// once) and, when the document parses, runs the static semantic checker.
func analyze(text string) analysis {
	var a analysis

	for num, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, string(vm.CommentMarker)) {
			continue
		}
		in, err := vm.ParseLine(trimmed)
		if err != nil {
			a.diagnostics = append(a.diagnostics, diagnostic(num, len(line), err.Error()))
			continue
		}
		a.program = append(a.program, in)
		a.lines = append(a.lines, num)
	}

	if len(a.diagnostics) > 0 {
		return a
	}

	if err := vm.Check(a.program); err != nil {
		line := a.semanticErrorLine(err)
		a.diagnostics = append(a.diagnostics, diagnostic(line, 80, err.Error()))
	}
	return a
}

// semanticErrorLine attributes a checker error to the source line of the
// first call or jump naming the offending label.
func (a *analysis) semanticErrorLine(err error) int {
	var label string
	switch e := err.(type) {
	case *vm.SemanticError:
		label = e.Label
	case *vm.LabelNotFoundError:
		label = e.Label
	default:
		return 0
	}

	for idx, in := range a.program {
		switch in.Op {
		case vm.OpCall, vm.OpCallVoid, vm.OpJmp, vm.OpJl, vm.OpJg, vm.OpJe, vm.OpJne, vm.OpSyscall:
			if in.Label == label {
				return a.lines[idx]
			}
		}
	}
	return 0
}

func diagnostic(line, width int, message string) protocol.Diagnostic {
	severity := protocol.DiagnosticSeverityError
	source := lspName
	return protocol.Diagnostic{
		Range:    lineRange(line, 0, width),
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}
}

func lineRange(line, startCol, endCol int) protocol.Range {
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(startCol)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(endCol)},
	}
}

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	a := analyze(text)

	diagnostics := a.diagnostics
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}

	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: diagnostics,
	})
}

// --- Completion and hover data ---

// mnemonicDocs is the hover/completion documentation for each mnemonic.
var mnemonicDocs = map[string]string{
	"mov":     "`mov D S` — copy the value of S into D",
	"add":     "`add D S1 S2` — D = S1 + S2 (integers add, stack pointers offset, other kinds concatenate)",
	"sub":     "`sub D S1 S2` — D = S1 - S2 (integers and stack pointers only)",
	"cmp":     "`cmp D S1 S2` — D = -1, 0 or 1 ordering S1 against S2",
	"lea":     "`lea D A` — store the address A itself into D as a pointer",
	"call":    "`call L` / `call D L` — call label L, optionally storing its return value into D",
	"jmp":     "`jmp L` — jump to label L without saving register state for restore",
	"jl":      "`jl S L` — jump to L when S is -1",
	"jg":      "`jg S L` — jump to L when S is 1",
	"je":      "`je S L` — jump to L when S is 0",
	"jne":     "`jne S L` — jump to L when S is not 0",
	"ret":     "`ret S` — return S to the caller (or terminate the program at top level)",
	"leave":   "`leave` — return without a value; only valid for void calls and jumps",
	"syscall": "`syscall NAME` — invoke a kernel-provided routine (printf)",
}

var registerDocs = map[string]string{
	"rax": "general-purpose register; printf reads its format string from here",
	"rbx": "general-purpose register; printf substitutes `{}` with its raw form",
	"rcx": "general-purpose register",
	"sp":  "base of the value stack; `sp[N]` addresses slot N",
}

// complete returns completion items for a prefix: mnemonics, registers,
// syscall names and every label defined in the document.
func complete(text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)

	addItem := func(label, detail string, kind protocol.CompletionItemKind) {
		if !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		labelCopy := label
		detailCopy := detail
		kindCopy := kind
		items = append(items, protocol.CompletionItem{
			Label:      labelCopy,
			Kind:       &kindCopy,
			Detail:     &detailCopy,
			InsertText: &labelCopy,
		})
	}

	for _, mnemonic := range vm.Mnemonics() {
		addItem(mnemonic, "instruction", protocol.CompletionItemKindKeyword)
	}
	for _, reg := range vm.RegisterNames() {
		addItem(reg, "register", protocol.CompletionItemKindVariable)
	}
	addItem("sp", "stack base", protocol.CompletionItemKindVariable)
	for _, name := range vm.KnownSyscalls() {
		addItem(name, "syscall", protocol.CompletionItemKindFunction)
	}
	for label := range documentLabels(text) {
		addItem(label, "label", protocol.CompletionItemKindFunction)
	}

	return items
}

// hover describes the word under the cursor: a mnemonic, a register, or a
// label defined in the document.
func hover(text, word string) *protocol.Hover {
	var b strings.Builder

	if doc, ok := mnemonicDocs[word]; ok {
		fmt.Fprintf(&b, "**%s**\n\n%s", word, doc)
	} else if doc, ok := registerDocs[word]; ok {
		fmt.Fprintf(&b, "**%s**\n\n%s", word, doc)
	} else if line, _, ok := labelDefinition(text, word); ok {
		fmt.Fprintf(&b, "**%s**\n\nlabel, defined on line %d", word, line+1)
		refs := labelReferences(text, word)
		// The definition itself is always in the reference list.
		if n := len(refs) - 1; n > 0 {
			fmt.Fprintf(&b, "; %d references", n)
		}
	} else {
		return nil
	}

	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: b.String(),
		},
	}
}

// --- Label navigation helpers ---

// documentLabels collects every label defined in the document, mapped to its
// 0-based source line.
func documentLabels(text string) map[string]int {
	labels := make(map[string]int)
	for num, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if len(trimmed) > 1 && strings.HasSuffix(trimmed, ":") && !strings.ContainsAny(trimmed[:len(trimmed)-1], " \t") {
			labels[trimmed[:len(trimmed)-1]] = num
		}
	}
	return labels
}

// labelDefinition finds the defining line and column of a label.
func labelDefinition(text, label string) (line, col int, ok bool) {
	for num, raw := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(raw)
		if trimmed == label+":" {
			return num, strings.Index(raw, label), true
		}
	}
	return 0, 0, false
}

type reference struct {
	line, col int
}

// labelReferences finds every line that mentions the label as a whole word:
// the definition plus all call/jump sites.
func labelReferences(text, label string) []reference {
	var refs []reference
	for num, raw := range strings.Split(text, "\n") {
		col := 0
		for {
			idx := strings.Index(raw[col:], label)
			if idx < 0 {
				break
			}
			start := col + idx
			if isWholeWord(raw, start, len(label)) {
				refs = append(refs, reference{line: num, col: start})
			}
			col = start + len(label)
		}
	}
	return refs
}

func isWholeWord(line string, start, length int) bool {
	if start > 0 && isWordChar(rune(line[start-1])) {
		return false
	}
	end := start + length
	if end < len(line) && isWordChar(rune(line[end])) {
		return false
	}
	return true
}

func isWordChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// --- Text extraction helpers ---

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}

	if start == col {
		return ""
	}

	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isWordChar(rune(line[start-1])) {
		start--
	}

	end := col
	for end < len(line) && isWordChar(rune(line[end])) {
		end++
	}

	if start == end {
		return ""
	}

	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}
