// Package efi holds the firmware-level constants this module operates
// against: the signature-type GUIDs, the MOK variable namespace, the ten
// variable names of the request/commit protocol, and the attribute
// combinations each one is required to carry. Types are aliased from
// github.com/canonical/go-efilib so that internal/varstore's production
// backend and this package agree on wire representation without a second
// GUID implementation.
package efi

import efilib "github.com/canonical/go-efilib"

// GUID is the 16-byte little-endian-encoded EFI GUID type.
type GUID = efilib.GUID

// Attributes mirrors the firmware variable attribute bitmask.
type Attributes = efilib.VariableAttributes

const (
	NonVolatile       = efilib.AttributeNonVolatile
	BootserviceAccess = efilib.AttributeBootserviceAccess
	RuntimeAccess     = efilib.AttributeRuntimeAccess
	AppendWrite       = efilib.AttributeAppendWrite
)

// NVBS is the attribute set required of every staging and durable MOK
// variable except MokListRT (which is runtime-readable by construction and
// never written by this utility) and appends to MokList.
const NVBS = NonVolatile | BootserviceAccess

// NVBSAppend is the attribute set used by VarStore.Append(MokList, ...).
const NVBSAppend = NonVolatile | BootserviceAccess | AppendWrite

// MokVariableGUID namespaces every variable in the table below. It is the
// shim/MOK GUID used by every known producer of these variables.
var MokVariableGUID = GUID{
	0x60, 0x5d, 0xab, 0x50, 0xe0, 0x46, 0x4b, 0x54,
	0x0c, 0x1d, 0x86, 0x8d, 0x79, 0xf0, 0xbd, 0x81,
} // 605dab50-e046-4b54-0c1d-868d79f0bd81 (SHIM_LOCK_GUID)

// SHIM_LOCK_GUID is the owner GUID stamped onto every signature list this
// module encodes via siglist.Encode.
var SHIM_LOCK_GUID = MokVariableGUID

// CertX509GUID and CertSHA256GUID are the two signature-list type GUIDs
// this module recognizes; every other type GUID causes siglist.Parse to
// skip the list it labels.
var (
	CertX509GUID = GUID{
		0xa1, 0x59, 0xc0, 0xa5, 0xe4, 0x94, 0xa7, 0x4a,
		0x87, 0xb5, 0xab, 0x15, 0x5c, 0x2b, 0xf0, 0x72,
	} // a159c0a5-e494-a74a-87b5-ab155c2bf072 (EFI_CERT_X509_GUID)

	CertSHA256GUID = GUID{
		0x26, 0x16, 0xc4, 0xc1, 0x4c, 0x50, 0x92, 0x40,
		0xac, 0xa9, 0x41, 0xf9, 0x36, 0x93, 0x43, 0x28,
	} // c1c41626-504c-4092-aca9-41f936934328 (EFI_CERT_SHA256_GUID)
)

// Variable names. Every name below lives in the MokVariableGUID namespace.
const (
	MokList    = "MokList"
	MokListRT  = "MokListRT"
	MokNew     = "MokNew"
	MokAuth    = "MokAuth"
	MokDel     = "MokDel"
	MokDelAuth = "MokDelAuth"
	MokSB      = "MokSB"
	MokSBState = "MokSBState"
	MokPW      = "MokPW"
	MokPWStore = "MokPWStore"
)

// SHA256HashSize is the fixed length of a recognized hash signature.
const SHA256HashSize = 32

// SigHeaderSize is sizeof(EFI_SIGNATURE_LIST): type GUID + list size +
// header size + signature size, all little-endian.
const SigHeaderSize = 16 + 4 + 4 + 4

// OwnerGUIDSize is sizeof(EFI_SIGNATURE_DATA.SignatureOwner).
const OwnerGUIDSize = 16

// HashSigSize is sizeof(EFI_SIGNATURE_DATA) for a SHA256 hash entry:
// owner GUID plus the 32-byte digest.
const HashSigSize = OwnerGUIDSize + SHA256HashSize
