package cascade

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetValue(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)

	item, err := SetValue(root, "server/http/port", 8080)
	require.NoError(t, err)
	assert.Equal(t, "/server/http/port", item.Path())
	assert.True(t, item.HasValue())

	v, err := GetValue[int](root, "server/http/port")
	require.NoError(t, err)
	assert.Equal(t, 8080, v)

	v2, err := item.Value()
	require.NoError(t, err)
	assert.Equal(t, 8080, v2)
}

func TestSetItemIdempotent(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)

	first, err := SetItem[string](root, "server/host")
	require.NoError(t, err)
	assert.False(t, first.HasValue())

	second, err := SetItem[string](root, "server/host")
	require.NoError(t, err)
	assert.Equal(t, first, second, "same path and type yields the same item")
}

func TestTypeMismatch(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)

	_, err = SetValue(root, "server/port", 8080)
	require.NoError(t, err)

	t.Run("set item", func(t *testing.T) {
		_, err := SetItem[string](root, "server/port")
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("set value leaves original untouched", func(t *testing.T) {
		_, err := SetValue(root, "server/port", "not a port")
		require.ErrorIs(t, err, ErrTypeMismatch)

		v, err := GetValue[int](root, "server/port")
		require.NoError(t, err)
		assert.Equal(t, 8080, v)
	})

	t.Run("get value", func(t *testing.T) {
		_, err := GetValue[string](root, "server/port")
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("get item", func(t *testing.T) {
		_, _, err := GetItem[string](root, "server/port")
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})
}

func TestGetValueAbsent(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)

	_, err = GetValue[int](root, "nowhere/port")
	assert.ErrorIs(t, err, ErrNoValue)

	// An item without a value and without inheritance resolves to nothing.
	_, err = SetItem[int](root, "server/port")
	require.NoError(t, err)
	_, err = GetValue[int](root, "server/port")
	assert.ErrorIs(t, err, ErrNoValue)
}

func TestGetItemVariants(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)

	item, err := SetItem[string](root, "server/host")
	require.NoError(t, err)

	t.Run("item without value", func(t *testing.T) {
		got, ok, err := GetItem[string](root, "server/host")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, item, got)

		_, ok, err = GetItemWithValue[string](root, "server/host")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = GetItemWithComment[string](root, "server/host")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("absence is soft", func(t *testing.T) {
		_, ok, err := GetItem[string](root, "server/missing")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("with value and comment", func(t *testing.T) {
		require.NoError(t, item.SetValue("example.org"))
		require.NoError(t, item.SetComment("public hostname"))

		_, ok, err := GetItemWithValue[string](root, "server/host")
		require.NoError(t, err)
		assert.True(t, ok)

		_, ok, err = GetItemWithComment[string](root, "server/host")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestInheritedValueResolution(t *testing.T) {
	base, err := NewRoot("machine", nil)
	require.NoError(t, err)
	_, err = SetValue(base, "display/color", "blue")
	require.NoError(t, err)

	derived := NewDerived(base, nil)

	t.Run("resolves through the chain", func(t *testing.T) {
		v, err := GetValue[string](derived, "display/color")
		require.NoError(t, err)
		assert.Equal(t, "blue", v)
	})

	t.Run("local value only resolves locally", func(t *testing.T) {
		_, err := LocalValue[string](derived, "display/color")
		assert.ErrorIs(t, err, ErrNoValue)

		v, err := LocalValue[string](base, "display/color")
		require.NoError(t, err)
		assert.Equal(t, "blue", v)
	})

	t.Run("own value overrides", func(t *testing.T) {
		_, err := SetValue(derived, "display/color", "red")
		require.NoError(t, err)

		v, err := GetValue[string](derived, "display/color")
		require.NoError(t, err)
		assert.Equal(t, "red", v)

		// The inherited node is unaffected.
		v, err = GetValue[string](base, "display/color")
		require.NoError(t, err)
		assert.Equal(t, "blue", v)
	})

	t.Run("deeper chains resolve transitively", func(t *testing.T) {
		grand := NewDerived(derived, nil)
		v, err := GetValue[string](grand, "display/color")
		require.NoError(t, err)
		assert.Equal(t, "red", v, "nearest ancestor with a value wins")
	})
}

func TestResetValue(t *testing.T) {
	base, err := NewRoot("machine", nil)
	require.NoError(t, err)
	_, err = SetValue(base, "display/color", "blue")
	require.NoError(t, err)

	derived := NewDerived(base, nil)
	item, err := SetValue(derived, "display/color", "red")
	require.NoError(t, err)

	t.Run("reset tracks inherited again", func(t *testing.T) {
		require.NoError(t, item.ResetValue())
		assert.False(t, item.HasValue())

		v, err := item.Value()
		require.NoError(t, err)
		assert.Equal(t, "blue", v)
	})

	t.Run("reset without own value is a no-op", func(t *testing.T) {
		require.NoError(t, item.ResetValue())
	})

	t.Run("reset without inheritance fails", func(t *testing.T) {
		lone, err := SetValue(base, "display/brightness", 80)
		require.NoError(t, err)
		err = lone.ResetValue()
		assert.ErrorIs(t, err, ErrNoInheritedValue)

		// The value survives a failed reset.
		v, verr := lone.Value()
		require.NoError(t, verr)
		assert.Equal(t, 80, v)
	})
}

func TestValueChangedCallbacks(t *testing.T) {
	base, err := NewRoot("machine", nil)
	require.NoError(t, err)
	baseItem, err := SetValue(base, "display/color", "blue")
	require.NoError(t, err)

	derived := NewDerived(base, nil)
	derivedItem, err := SetItem[string](derived, "display/color")
	require.NoError(t, err)

	// Callbacks run inside the critical section, so they read the issuer
	// through the non-locking accessors.
	var issuers []string
	derivedItem.OnValueChanged(func(issuer Setting) {
		if v, ok := issuer.PersistentValue(SaveDefault); ok {
			issuers = append(issuers, v.(string))
		}
	})

	t.Run("inherited change propagates", func(t *testing.T) {
		require.NoError(t, baseItem.SetValue("green"))
		require.Len(t, issuers, 1)
		assert.Equal(t, "green", issuers[0])
	})

	t.Run("own value masks propagation", func(t *testing.T) {
		require.NoError(t, derivedItem.SetValue("red"))
		require.Len(t, issuers, 2, "direct set fires with the item itself as issuer")

		require.NoError(t, baseItem.SetValue("yellow"))
		assert.Len(t, issuers, 2, "masked items do not receive inherited changes")
	})

	t.Run("reset fires with inherited issuer", func(t *testing.T) {
		require.NoError(t, derivedItem.ResetValue())
		require.Len(t, issuers, 3)
		assert.Equal(t, "yellow", issuers[2])
	})

	t.Run("unchanged value does not fire", func(t *testing.T) {
		require.NoError(t, baseItem.SetValue("yellow"))
		assert.Len(t, issuers, 3)
	})
}

func TestComments(t *testing.T) {
	base, err := NewRoot("machine", nil)
	require.NoError(t, err)
	baseItem, err := SetValue(base, "display/color", "blue")
	require.NoError(t, err)
	require.NoError(t, baseItem.SetComment("preferred tint"))

	derived := NewDerived(base, nil)
	derivedItem, err := SetItem[string](derived, "display/color")
	require.NoError(t, err)

	t.Run("comments inherit", func(t *testing.T) {
		c, ok := derivedItem.Comment()
		require.True(t, ok)
		assert.Equal(t, "preferred tint", c)

		c, ok, err := derived.Comment("display/color")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "preferred tint", c)
	})

	t.Run("own comment overrides", func(t *testing.T) {
		require.NoError(t, derivedItem.SetComment("local tint"))
		c, ok := derivedItem.Comment()
		require.True(t, ok)
		assert.Equal(t, "local tint", c)
	})

	t.Run("reset comment never fails", func(t *testing.T) {
		derivedItem.ResetComment()
		c, ok := derivedItem.Comment()
		require.True(t, ok)
		assert.Equal(t, "preferred tint", c, "inherited comment shows through again")

		// Resetting an item with no inherited comment just leaves none.
		lone, err := SetValue(base, "display/brightness", 80)
		require.NoError(t, err)
		require.NoError(t, lone.SetComment("percent"))
		lone.ResetComment()
		_, ok = lone.Comment()
		assert.False(t, ok)
	})

	t.Run("comment absence is soft", func(t *testing.T) {
		_, ok, err := base.Comment("display/brightness")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestRemovedItemIsInert(t *testing.T) {
	root, err := NewRoot("machine", nil)
	require.NoError(t, err)

	item, err := SetValue(root, "server/host", "example.org")
	require.NoError(t, err)

	server, err := root.Child("server", false)
	require.NoError(t, err)
	require.NotNil(t, server)
	assert.True(t, server.RemoveItem("host"))
	assert.False(t, server.RemoveItem("host"), "second removal finds nothing")

	assert.Nil(t, item.Node())
	assert.ErrorIs(t, item.SetValue("other"), ErrDetached)
	assert.ErrorIs(t, item.SetComment("text"), ErrDetached)

	_, err = GetValue[string](root, "server/host")
	assert.ErrorIs(t, err, ErrNoValue)
}
