package emitter

// Prelude is the small runtime prepended exactly once to every Compile
// output, by the bundler or by the single-file path (CompileFragment output
// does not include it): `get` implements the
// "collections are callable with their key" indexing rule lowering
// produces for one-argument application, and `getProperty` gives macros
// and interop code a uniform way to read either a Map/array/object
// member without knowing which shape they were handed.
const Prelude = `function get(collection, key) {
  if (collection == null) return undefined;
  if (collection instanceof Map) return collection.get(key);
  if (collection instanceof Set) return collection.has(key);
  return collection[key];
}

function getProperty(obj, key) {
  if (obj == null) return undefined;
  if (obj instanceof Map) return obj.get(key);
  return obj[key];
}

`
