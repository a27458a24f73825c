package completion

var oneLiners = []Item{
	{Label: "#!/usr/bin/env ruby", Kind: OneLinerItem, Detail: "insert Shebang line"},
	{Label: "# encoding: UTF-8", Kind: OneLinerItem, Detail: "insert encoding line"},
}

// plainKeywords insert themselves.
var plainKeywords = []string{
	"next", "break", "true", "false", "self", "then", "redo", "retry", "yield",
	"super", "return", "defined?", "ensure", "__FILE__", "__LINE__", "__ENCODING__",
}

// templates expand a keyword into a snippet.
var templates = []struct{ keyword, insert string }{
	{"alias", "alias "},
	{"undef", "undef "},
	{"rescue", "rescue "},
	{"BEGIN", "BEGIN {\n  $0\n}"},
	{"END", "END {\n  $0\n}"},
	{"include", "include ${1:MyModule}"},
	{"extend", "extend ${1:MyModule}"},
	{"if", "if ${1:condition}\nend"},
	{"unless", "unless ${1:condition}\nend"},
	{"elsif", "elsif ${1:condition}"},
	{"while", "while ${1:condition}\nend"},
	{"until", "until ${1:condition}\nend"},
	{"for", "for ${1:condition} in \nend"},
	{"def", "def ${1:name}\nend"},
	{"class", "class ${1:Name}\nend"},
	{"module", "module ${1:Name}\nend"},
	{"case", "case ${1:condition}\nend"},
	{"when", "when ${1:condition}"},
	{"begin", "begin\n  $0\nend"},
	{"do", "do |$0|\nend"},
}

func keywords() []Item {
	items := make([]Item, 0, len(plainKeywords)+len(templates))
	for _, k := range plainKeywords {
		items = append(items, Item{Label: k, Kind: KeywordItem})
	}
	for _, t := range templates {
		items = append(items, Item{Label: t.keyword, Kind: KeywordItem, Insert: t.insert})
	}
	return items
}
