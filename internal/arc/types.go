package arc

import (
	"fmt"
	"strings"
	"unicode"
)

// Type identifies the record stored behind an entry.
type Type uint8

const (
	TypePlainData         Type = 0x00
	TypeTexture           Type = 0x01
	TypeMaterial          Type = 0x02
	TypeMesh              Type = 0x09
	TypeIndexBuffer       Type = 0x0f
	TypeVertexBuffer      Type = 0x10
	TypeLightmapTexture   Type = 0x11
	TypeSkinnedMesh       Type = 0x15
	TypeDeformedMesh      Type = 0x19
	TypeAttachment        Type = 0x1c
	TypeModel             Type = 0x1d
	TypeDeformedModel     Type = 0x1e
	TypeSkinnedModel      Type = 0x1f
	TypeAnimatedModel     Type = 0x20
	TypeSkeleton          Type = 0x21
	TypeCamera            Type = 0x25
	TypeRigNode           Type = 0x27
	TypeInstancedModel    Type = 0x28
	TypeAnimation         Type = 0x29
	TypeAnimatedNode      Type = 0x31
	TypeReferencedTexture Type = 0x34
	TypeUnkNode           Type = 0x35
	TypeLightNode         Type = 0x36
	TypeEntryNames        Type = 0xfd
	TypeGroup             Type = 0xff
)

var typeNames = map[Type]string{
	TypePlainData:         "PlainData",
	TypeTexture:           "Texture",
	TypeMaterial:          "Material",
	TypeMesh:              "Mesh",
	TypeIndexBuffer:       "IndexBuffer",
	TypeVertexBuffer:      "VertexBuffer",
	TypeLightmapTexture:   "LightmapTexture",
	TypeSkinnedMesh:       "SkinnedMesh",
	TypeDeformedMesh:      "DeformedMesh",
	TypeAttachment:        "Attachment",
	TypeModel:             "Model",
	TypeDeformedModel:     "DeformedModel",
	TypeSkinnedModel:      "SkinnedModel",
	TypeAnimatedModel:     "AnimatedModel",
	TypeSkeleton:          "Skeleton",
	TypeCamera:            "Camera",
	TypeRigNode:           "RigNode",
	TypeInstancedModel:    "InstancedModel",
	TypeAnimation:         "Animation",
	TypeAnimatedNode:      "AnimatedNode",
	TypeReferencedTexture: "ReferencedTexture",
	TypeUnkNode:           "UnkNode",
	TypeLightNode:         "LightNode",
	TypeEntryNames:        "EntryNames",
	TypeGroup:             "Group",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Type(%#x)", uint8(t))
}

// Label returns the lower snake case name used in catalogs, such as
// skinned_mesh. Unknown types become type_XX with the hex value.
func (t Type) Label() string {
	name, ok := typeNames[t]
	if !ok {
		return fmt.Sprintf("type_%02x", uint8(t))
	}

	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Structural reports whether the entry only shapes the table (names blob,
// group markers) rather than holding a record.
func (t Type) Structural() bool {
	return t == TypeEntryNames || t == TypeGroup
}

// IsNode reports whether the record decodes through ReadNode.
func (t Type) IsNode() bool {
	switch t {
	case TypeSkeleton, TypeRigNode, TypeModel, TypeInstancedModel, TypeLightNode,
		TypeDeformedModel, TypeCamera, TypeSkinnedModel, TypeAttachment, TypeUnkNode,
		TypeAnimatedModel:
		return true
	}
	return false
}

// Decoded reports whether the scene pipeline consumes the record. Other
// entries are dumped as loose files.
func (t Type) Decoded() bool {
	if t.IsNode() {
		return true
	}
	switch t {
	case TypeEntryNames, TypeGroup, TypeTexture, TypeReferencedTexture, TypeLightmapTexture,
		TypeMesh, TypeSkinnedMesh, TypeDeformedMesh, TypeIndexBuffer, TypeVertexBuffer,
		TypeMaterial, TypeAnimation, TypeAnimatedNode:
		return true
	}
	return false
}

// Platform is the target console a bank was built for.
type Platform int

const (
	PlatformUnknown Platform = iota
	PlatformPC
	PlatformPS2
	PlatformXbox
	PlatformGC
)

var platformMagics = map[string]Platform{
	"ARCC": PlatformPC,
	"ARCP": PlatformPS2,
	"ARCX": PlatformXbox,
	"ARCN": PlatformGC,
}

// PlatformOf maps a four-character header id to its platform.
func PlatformOf(id [4]byte) Platform {
	return platformMagics[string(id[:])]
}

func (p Platform) String() string {
	switch p {
	case PlatformPC:
		return "PC"
	case PlatformPS2:
		return "PS2"
	case PlatformXbox:
		return "Xbox"
	case PlatformGC:
		return "GameCube"
	}
	return "unknown"
}
