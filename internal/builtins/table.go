package builtins

// class describes one builtin class or module.
//
// Methods are written as "name(params) -> Result". A "self." prefix makes a
// singleton method. Params use Ruby markers: "x=" optional, "*x" rest, "k:"
// keyword, "**x" keyword rest, "&x" block. Result is a class name, "self",
// "bool", "Array", "Hash", "Proc", or empty for NilClass.
type class struct {
	name    string
	super   string
	module  bool
	include []string
	extend  []string
	methods []string
}

var table = []class{
	{name: "BasicObject", methods: []string{
		"initialize()",
		"==(other) -> bool",
		"!(other) -> bool",
		"!=(other) -> bool",
		"equal?(other) -> bool",
		"instance_eval(*args, &blk) -> Object",
		"instance_exec(*args, &blk) -> Object",
		"__send__(name, *args) -> Object",
		"__id__() -> Fixnum",
	}},
	{name: "Kernel", module: true, methods: []string{
		"puts(*args)",
		"print(*args)",
		"p(*args) -> Object",
		"pp(*args) -> Object",
		"require(name) -> bool",
		"require_relative(name) -> bool",
		"load(file, wrap=) -> bool",
		"raise(*args)",
		"fail(*args)",
		"loop(&blk)",
		"lambda(&blk) -> Proc",
		"proc(&blk) -> Proc",
		"block_given?() -> bool",
		"format(fmt, *args) -> String",
		"sprintf(fmt, *args) -> String",
		"gets(*args) -> String",
		"rand(max=) -> Float",
		"srand(seed=) -> Fixnum",
		"sleep(duration=) -> Fixnum",
		"catch(tag=, &blk) -> Object",
		"throw(tag, value=)",
		"exit(status=)",
		"abort(msg=)",
		"at_exit(&blk) -> Proc",
		"binding() -> Object",
		"caller(start=) -> Array",
		"Integer(value) -> Fixnum",
		"Float(value) -> Float",
		"String(value) -> String",
		"Array(value) -> Array",
		"class() -> Class",
		"frozen?() -> bool",
		"freeze() -> self",
		"dup() -> self",
		"clone(freeze:) -> self",
		"tap(&blk) -> self",
		"then(&blk) -> Object",
		"send(name, *args) -> Object",
		"public_send(name, *args) -> Object",
		"respond_to?(name, include_all=) -> bool",
		"is_a?(klass) -> bool",
		"kind_of?(klass) -> bool",
		"instance_of?(klass) -> bool",
		"nil?() -> bool",
		"hash() -> Fixnum",
		"inspect() -> String",
		"to_s() -> String",
		"object_id() -> Fixnum",
		"methods() -> Array",
		"instance_variables() -> Array",
		"instance_variable_get(name) -> Object",
		"instance_variable_set(name, value) -> Object",
		"define_singleton_method(name, &blk) -> Symbol",
		"extend(*mods) -> self",
		"itself() -> self",
	}},
	{name: "Comparable", module: true, methods: []string{
		"<(other) -> bool",
		"<=(other) -> bool",
		">(other) -> bool",
		">=(other) -> bool",
		"between?(min, max) -> bool",
		"clamp(min, max=) -> self",
	}},
	{name: "Enumerable", module: true, methods: []string{
		"to_a() -> Array",
		"entries() -> Array",
		"map(&blk) -> Array",
		"collect(&blk) -> Array",
		"flat_map(&blk) -> Array",
		"select(&blk) -> Array",
		"filter(&blk) -> Array",
		"filter_map(&blk) -> Array",
		"reject(&blk) -> Array",
		"find(ifnone=, &blk) -> Object",
		"detect(ifnone=, &blk) -> Object",
		"find_index(value=, &blk) -> Fixnum",
		"include?(obj) -> bool",
		"member?(obj) -> bool",
		"reduce(initial=, sym=, &blk) -> Object",
		"inject(initial=, sym=, &blk) -> Object",
		"sum(init=, &blk) -> Fixnum",
		"count(item=, &blk) -> Fixnum",
		"min(n=, &blk) -> Object",
		"max(n=, &blk) -> Object",
		"min_by(&blk) -> Object",
		"max_by(&blk) -> Object",
		"sort(&blk) -> Array",
		"sort_by(&blk) -> Array",
		"group_by(&blk) -> Hash",
		"partition(&blk) -> Array",
		"each_with_index(*args, &blk) -> self",
		"each_with_object(memo, &blk) -> Object",
		"each_slice(n, &blk) -> Object",
		"each_cons(n, &blk) -> Object",
		"zip(*others) -> Array",
		"take(n) -> Array",
		"drop(n) -> Array",
		"first(n=) -> Object",
		"all?(pattern=, &blk) -> bool",
		"any?(pattern=, &blk) -> bool",
		"none?(pattern=, &blk) -> bool",
		"tally() -> Hash",
		"uniq(&blk) -> Array",
		"to_h(&blk) -> Hash",
		"to_set() -> Object",
	}},
	{name: "Object", super: "BasicObject", include: []string{"Kernel"}},
	{name: "Module", methods: []string{
		"name() -> String",
		"to_s() -> String",
		"include(*mods) -> self",
		"extend(*mods) -> self",
		"prepend(*mods) -> self",
		"include?(mod) -> bool",
		"ancestors() -> Array",
		"instance_methods(include_super=) -> Array",
		"method_defined?(name) -> bool",
		"attr_accessor(*names) -> Array",
		"attr_reader(*names) -> Array",
		"attr_writer(*names) -> Array",
		"define_method(name, method=, &blk) -> Symbol",
		"alias_method(new_name, old_name) -> Symbol",
		"private(*names) -> Object",
		"public(*names) -> Object",
		"protected(*names) -> Object",
		"module_function(*names) -> Object",
		"private_constant(*names) -> self",
		"const_get(name) -> Object",
		"const_set(name, value) -> Object",
		"const_defined?(name) -> bool",
		"class_eval(*args, &blk) -> Object",
		"module_eval(*args, &blk) -> Object",
		"===(obj) -> bool",
	}},
	{name: "Class", super: "Module", methods: []string{
		"new(*args, &block) -> self",
		"allocate() -> Object",
		"superclass() -> Class",
		"instance_methods(include_super=) -> Array",
	}},
	{name: "NilClass", methods: []string{
		"to_s() -> String",
		"to_a() -> Array",
		"to_h() -> Hash",
		"to_i() -> Fixnum",
		"to_f() -> Float",
		"inspect() -> String",
		"&(other) -> bool",
		"|(other) -> bool",
	}},
	{name: "TrueClass", methods: []string{
		"to_s() -> String",
		"&(other) -> bool",
		"|(other) -> bool",
		"^(other) -> bool",
	}},
	{name: "FalseClass", methods: []string{
		"to_s() -> String",
		"&(other) -> bool",
		"|(other) -> bool",
		"^(other) -> bool",
	}},
	{name: "Numeric", include: []string{"Comparable"}, methods: []string{
		"+(other) -> self",
		"-(other) -> self",
		"*(other) -> self",
		"/(other) -> self",
		"%(other) -> self",
		"**(other) -> self",
		"-@() -> self",
		"abs() -> self",
		"ceil(digits=) -> Fixnum",
		"floor(digits=) -> Fixnum",
		"round(digits=, half:) -> Fixnum",
		"truncate(digits=) -> Fixnum",
		"divmod(other) -> Array",
		"coerce(other) -> Array",
		"zero?() -> bool",
		"positive?() -> bool",
		"negative?() -> bool",
		"integer?() -> bool",
		"step(limit=, step=, &blk) -> Object",
		"to_i() -> Fixnum",
		"to_f() -> Float",
		"to_s(base=) -> String",
		"<=>(other) -> Fixnum",
	}},
	{name: "Integer", super: "Numeric", methods: []string{
		"times(&blk) -> self",
		"upto(limit, &blk) -> self",
		"downto(limit, &blk) -> self",
		"succ() -> self",
		"next() -> self",
		"pred() -> self",
		"chr(encoding=) -> String",
		"ord() -> self",
		"even?() -> bool",
		"odd?() -> bool",
		"gcd(other) -> self",
		"lcm(other) -> self",
		"digits(base=) -> Array",
		"bit_length() -> Fixnum",
		"&(other) -> self",
		"|(other) -> self",
		"^(other) -> self",
		"<<(count) -> self",
		">>(count) -> self",
	}},
	{name: "Fixnum", super: "Integer"},
	{name: "Float", super: "Numeric", methods: []string{
		"nan?() -> bool",
		"infinite?() -> Fixnum",
		"finite?() -> bool",
	}},
	{name: "String", include: []string{"Comparable"}, methods: []string{
		"+(other) -> self",
		"*(count) -> self",
		"%(args) -> self",
		"<<(other) -> self",
		"=~(pattern) -> Fixnum",
		"[](index, length=) -> self",
		"length() -> Fixnum",
		"size() -> Fixnum",
		"bytesize() -> Fixnum",
		"empty?() -> bool",
		"upcase() -> self",
		"downcase() -> self",
		"capitalize() -> self",
		"swapcase() -> self",
		"strip() -> self",
		"lstrip() -> self",
		"rstrip() -> self",
		"chomp(separator=) -> self",
		"chop() -> self",
		"chars() -> Array",
		"bytes() -> Array",
		"lines(separator=) -> Array",
		"split(pattern=, limit=) -> Array",
		"sub(pattern, replacement=, &blk) -> self",
		"gsub(pattern, replacement=, &blk) -> self",
		"tr(from, to) -> self",
		"delete(*sets) -> self",
		"squeeze(*sets) -> self",
		"reverse() -> self",
		"include?(other) -> bool",
		"start_with?(*prefixes) -> bool",
		"end_with?(*suffixes) -> bool",
		"index(substring, offset=) -> Fixnum",
		"rindex(substring, offset=) -> Fixnum",
		"match(pattern, pos=) -> Object",
		"match?(pattern, pos=) -> bool",
		"scan(pattern, &blk) -> Array",
		"center(width, padding=) -> self",
		"ljust(width, padding=) -> self",
		"rjust(width, padding=) -> self",
		"each_char(&blk) -> self",
		"each_line(separator=, &blk) -> self",
		"to_s() -> self",
		"to_str() -> self",
		"to_sym() -> Symbol",
		"to_i(base=) -> Fixnum",
		"to_f() -> Float",
		"encoding() -> Encoding",
		"force_encoding(encoding) -> self",
		"encode(*args) -> self",
		"freeze() -> self",
		"frozen?() -> bool",
		"<=>(other) -> Fixnum",
		"ord() -> Fixnum",
		"hex() -> Fixnum",
		"unpack(format) -> Array",
		"format(*args) -> self",
	}},
	{name: "Symbol", include: []string{"Comparable"}, methods: []string{
		"to_s() -> String",
		"id2name() -> String",
		"name() -> String",
		"to_sym() -> self",
		"to_proc() -> Proc",
		"length() -> Fixnum",
		"size() -> Fixnum",
		"upcase() -> self",
		"downcase() -> self",
		"<=>(other) -> Fixnum",
	}},
	{name: "Array", include: []string{"Enumerable"}, methods: []string{
		"each(&blk) -> self",
		"each_index(&blk) -> self",
		"reverse_each(&blk) -> self",
		"length() -> Fixnum",
		"size() -> Fixnum",
		"empty?() -> bool",
		"push(*objs) -> self",
		"append(*objs) -> self",
		"<<(obj) -> self",
		"unshift(*objs) -> self",
		"prepend(*objs) -> self",
		"insert(index, *objs) -> self",
		"concat(*arrays) -> self",
		"+(other) -> self",
		"-(other) -> self",
		"*(times) -> self",
		"&(other) -> self",
		"|(other) -> self",
		"join(separator=) -> String",
		"flatten(depth=) -> Array",
		"compact() -> self",
		"uniq(&blk) -> self",
		"reverse() -> self",
		"rotate(count=) -> self",
		"shuffle() -> self",
		"sort(&blk) -> self",
		"index(obj=, &blk) -> Fixnum",
		"rindex(obj=, &blk) -> Fixnum",
		"delete(obj) -> Object",
		"delete_at(index) -> Object",
		"delete_if(&blk) -> self",
		"keep_if(&blk) -> self",
		"clear() -> self",
		"fill(*args, &blk) -> self",
		"slice(*args) -> Object",
		"dig(*keys) -> Object",
		"transpose() -> Array",
		"product(*arrays) -> Array",
		"combination(n, &blk) -> Object",
		"permutation(n=, &blk) -> Object",
		"pack(format) -> String",
		"to_a() -> self",
		"to_ary() -> self",
		"inspect() -> String",
		"to_s() -> String",
		"<=>(other) -> Fixnum",
	}},
	{name: "Hash", include: []string{"Enumerable"}, methods: []string{
		"each(&blk) -> self",
		"each_pair(&blk) -> self",
		"each_key(&blk) -> self",
		"each_value(&blk) -> self",
		"key?(key) -> bool",
		"has_key?(key) -> bool",
		"value?(value) -> bool",
		"has_value?(value) -> bool",
		"key(value) -> Object",
		"store(key, value) -> Object",
		"[]=(key, value) -> Object",
		"delete(key, &blk) -> Object",
		"delete_if(&blk) -> self",
		"merge(*others, &blk) -> self",
		"merge!(*others, &blk) -> self",
		"update(*others, &blk) -> self",
		"select(&blk) -> self",
		"filter(&blk) -> self",
		"reject(&blk) -> self",
		"transform_values(&blk) -> Hash",
		"transform_keys(&blk) -> Hash",
		"slice(*keys) -> self",
		"except(*keys) -> self",
		"invert() -> Hash",
		"length() -> Fixnum",
		"size() -> Fixnum",
		"empty?() -> bool",
		"clear() -> self",
		"dig(*keys) -> Object",
		"default() -> Object",
		"default=(value) -> Object",
		"to_h(&blk) -> self",
		"to_a() -> Array",
		"inspect() -> String",
		"to_s() -> String",
	}},
	{name: "Range", include: []string{"Enumerable"}, methods: []string{
		"each(&blk) -> self",
		"step(n=, &blk) -> Object",
		"begin() -> Object",
		"end() -> Object",
		"first(n=) -> Object",
		"last(n=) -> Object",
		"min(&blk) -> Object",
		"max(&blk) -> Object",
		"size() -> Fixnum",
		"cover?(obj) -> bool",
		"include?(obj) -> bool",
		"exclude_end?() -> bool",
		"to_a() -> Array",
	}},
	{name: "Regexp", methods: []string{
		"self.escape(str) -> String",
		"self.union(*patterns) -> self",
		"match(str, pos=) -> Object",
		"match?(str, pos=) -> bool",
		"=~(str) -> Fixnum",
		"===(str) -> bool",
		"source() -> String",
		"to_s() -> String",
		"options() -> Fixnum",
	}},
	{name: "Proc", methods: []string{
		"call(*args) -> Object",
		"yield(*args) -> Object",
		"[](*args) -> Object",
		"to_proc() -> self",
		"lambda?() -> bool",
		"arity() -> Fixnum",
		"parameters() -> Array",
		"curry(arity=) -> self",
	}},
	{name: "Encoding", methods: []string{
		"self.default_external() -> self",
		"self.default_internal() -> self",
		"self.find(name) -> self",
		"name() -> String",
		"to_s() -> String",
		"names() -> Array",
		"ascii_compatible?() -> bool",
	}},
	{name: "Exception", methods: []string{
		"self.exception(msg=) -> self",
		"message() -> String",
		"full_message(highlight:, order:) -> String",
		"backtrace() -> Array",
		"set_backtrace(bt) -> Array",
		"cause() -> Exception",
		"exception(msg=) -> self",
		"inspect() -> String",
		"to_s() -> String",
	}},
	{name: "ScriptError", super: "Exception"},
	{name: "LoadError", super: "ScriptError"},
	{name: "NotImplementedError", super: "ScriptError"},
	{name: "StandardError", super: "Exception"},
	{name: "RuntimeError", super: "StandardError"},
	{name: "ArgumentError", super: "StandardError"},
	{name: "TypeError", super: "StandardError"},
	{name: "NameError", super: "StandardError", methods: []string{"name() -> Symbol"}},
	{name: "NoMethodError", super: "NameError"},
	{name: "IOError", super: "StandardError"},
	{name: "IndexError", super: "StandardError"},
	{name: "KeyError", super: "IndexError"},
	{name: "StopIteration", super: "IndexError"},
	{name: "RangeError", super: "StandardError"},
	{name: "ZeroDivisionError", super: "StandardError"},
	{name: "IO", include: []string{"Enumerable"}, methods: []string{
		"puts(*args)",
		"print(*args)",
		"write(*args) -> Fixnum",
		"read(length=) -> String",
		"gets(*args) -> String",
		"readlines(*args) -> Array",
		"each_line(*args, &blk) -> self",
		"flush() -> self",
		"sync() -> bool",
		"close()",
		"closed?() -> bool",
	}},
	{name: "File", super: "IO", methods: []string{
		"self.open(path, mode=, &blk) -> self",
		"self.read(path) -> String",
		"self.write(path, data) -> Fixnum",
		"self.readlines(path) -> Array",
		"self.exist?(path) -> bool",
		"self.file?(path) -> bool",
		"self.directory?(path) -> bool",
		"self.join(*parts) -> String",
		"self.basename(path, suffix=) -> String",
		"self.dirname(path) -> String",
		"self.extname(path) -> String",
		"self.expand_path(path, dir=) -> String",
		"path() -> String",
		"size() -> Fixnum",
	}},
	{name: "Dir", include: []string{"Enumerable"}, methods: []string{
		"self.pwd() -> String",
		"self.glob(pattern, flags=) -> Array",
		"self.entries(path) -> Array",
		"self.exist?(path) -> bool",
		"self.mkdir(path) -> Fixnum",
	}},
	{name: "Time", include: []string{"Comparable"}, methods: []string{
		"self.now() -> self",
		"self.at(seconds) -> self",
		"year() -> Fixnum",
		"month() -> Fixnum",
		"day() -> Fixnum",
		"hour() -> Fixnum",
		"min() -> Fixnum",
		"sec() -> Fixnum",
		"to_i() -> Fixnum",
		"to_f() -> Float",
		"strftime(format) -> String",
		"+(seconds) -> self",
		"-(other) -> Float",
		"to_s() -> String",
	}},
	{name: "Struct", include: []string{"Enumerable"}, methods: []string{
		"self.new(*fields, keyword_init:, &blk) -> Class",
		"members() -> Array",
		"to_a() -> Array",
		"to_h() -> Hash",
		"each(&blk) -> self",
	}},
	{name: "Math", module: true, methods: []string{
		"self.sqrt(x) -> Float",
		"self.cbrt(x) -> Float",
		"self.sin(x) -> Float",
		"self.cos(x) -> Float",
		"self.tan(x) -> Float",
		"self.log(x, base=) -> Float",
		"self.log2(x) -> Float",
		"self.log10(x) -> Float",
		"self.exp(x) -> Float",
		"self.hypot(x, y) -> Float",
	}},
}

// globals are the predefined global variables and constants with the
// expression they are typed from.
var globals = []struct {
	name   string
	result string
}{
	{"$stdout", "IO"},
	{"$stderr", "IO"},
	{"$stdin", "IO"},
	{"$0", "String"},
	{"$PROGRAM_NAME", "String"},
	{"$LOAD_PATH", "Array"},
	{"$LOADED_FEATURES", "Array"},
	{"$DEBUG", "bool"},
	{"$VERBOSE", "bool"},
	{"STDOUT", "IO"},
	{"STDERR", "IO"},
	{"STDIN", "IO"},
	{"ARGV", "Array"},
	{"ENV", "Hash"},
	{"RUBY_VERSION", "String"},
	{"RUBY_PLATFORM", "String"},
}
